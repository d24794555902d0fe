package s3

import (
	"testing"

	"github.com/nodskit/ndk"
)

func TestNewSourceOptions(t *testing.T) {
	schema := ndk.Schema{
		{Name: "city", Type: ndk.String},
		{Name: "pop", Type: ndk.Integer},
	}
	src, err := NewSource(
		OptSrcBucket("ndk-test-data"),
		OptSrcRegion("us-east-1"),
		OptSrcPrefix("zips/"),
		OptSrcSchema(schema),
	)
	if err != nil {
		t.Fatalf("getting source: %v", err)
	}
	if src.bucket != "ndk-test-data" || src.region != "us-east-1" || src.prefix != "zips/" {
		t.Fatalf("options not applied: %#v", src)
	}
	if len(src.schema) != 2 {
		t.Fatalf("schema not applied: %#v", src.schema)
	}
	if src.endpoint() != "s3://ndk-test-data/zips/" {
		t.Fatalf("unexpected endpoint: %s", src.endpoint())
	}
}

func TestNewSourceRequiresBucket(t *testing.T) {
	if _, err := NewSource(OptSrcRegion("us-east-1")); err == nil {
		t.Fatal("expected an error for missing bucket")
	}
}
