package upload

import (
	"strings"
	"testing"

	appcfg "github.com/motohub/core/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestBuildFileNameKeepsExtension(t *testing.T) {
	name := buildFileName("helmet-cam.MP4")
	assert.True(t, strings.HasSuffix(name, ".mp4"))
	assert.Len(t, name, 18+len(".mp4"))
}

func TestBuildFileNameFallsBackWithoutExtension(t *testing.T) {
	assert.True(t, strings.HasSuffix(buildFileName("noext"), ".dat"))
	assert.True(t, strings.HasSuffix(buildFileName(""), ".dat"))
}

func TestBuildFileNameIsUnique(t *testing.T) {
	assert.NotEqual(t, buildFileName("a.png"), buildFileName("a.png"))
}

func TestSafeNameRejectsTraversal(t *testing.T) {
	assert.Empty(t, safeName(".."))
	assert.Empty(t, safeName("../etc/passwd"))
	assert.Empty(t, safeName("a/b.png"))
	assert.Equal(t, "photo_1.png", safeName("photo_1.png"))
}

func TestNormalizeType(t *testing.T) {
	assert.Equal(t, "avatar", normalizeType(" Avatar "))
	assert.Empty(t, normalizeType("secrets"))
}

func TestCleanObjectKey(t *testing.T) {
	assert.Equal(t, "a/b/c.png", cleanObjectKey(`\a//b\c.png`))
	assert.Equal(t, "x.png", cleanObjectKey("/x.png"))
}

func TestTargetAddressing(t *testing.T) {
	u, err := newS3Uploader(appcfg.S3RuntimeConfig{
		Bucket: "media", Region: "eu-central-1",
		AccessKeyID: "ak", SecretAccessKey: "sk",
	})
	assert.NoError(t, err)
	tgt := u.target("rides/1.png")
	assert.Equal(t, "https://media.s3.eu-central-1.amazonaws.com/rides/1.png", tgt.url)

	u, err = newS3Uploader(appcfg.S3RuntimeConfig{
		Bucket: "media", Region: "auto", Endpoint: "http://minio:9000",
		AccessKeyID: "ak", SecretAccessKey: "sk",
	})
	assert.NoError(t, err)
	tgt = u.target("rides/1.png")
	assert.Equal(t, "http://minio:9000/media/rides/1.png", tgt.url)
}
