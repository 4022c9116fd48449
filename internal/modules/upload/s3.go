package upload

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	appcfg "github.com/motohub/core/internal/config"
)

// s3Uploader PUTs objects with a hand-rolled SigV4 signature. Uploads are the
// only S3 call the app makes, which does not justify pulling in the AWS SDK.
type s3Uploader struct {
	endpoint     *url.URL
	bucket       string
	region       string
	accessKey    string
	secretKey    string
	customDomain string
	pathStyle    bool
	client       *http.Client
}

func newS3Uploader(opts appcfg.S3RuntimeConfig) (*s3Uploader, error) {
	bucket := strings.TrimSpace(opts.Bucket)
	region := strings.TrimSpace(opts.Region)
	accessKey := strings.TrimSpace(opts.AccessKeyID)
	secretKey := strings.TrimSpace(opts.SecretAccessKey)
	if bucket == "" || region == "" || accessKey == "" || secretKey == "" {
		return nil, fmt.Errorf("incomplete s3 config: bucket, region and credentials are required")
	}

	endpoint := strings.TrimSpace(opts.Endpoint)
	if endpoint == "" {
		endpoint = "https://s3." + region + ".amazonaws.com"
	}
	if !strings.Contains(endpoint, "://") {
		endpoint = "https://" + endpoint
	}
	parsed, err := url.Parse(strings.TrimSuffix(endpoint, "/"))
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid s3 endpoint: %s", endpoint)
	}

	// Third-party S3 compatibles (MinIO, R2) generally want path-style
	// addressing, so a custom endpoint implies it unless told otherwise.
	pathStyle := opts.PathStyleAccess || opts.Endpoint != ""

	return &s3Uploader{
		endpoint:     parsed,
		bucket:       bucket,
		region:       region,
		accessKey:    accessKey,
		secretKey:    secretKey,
		customDomain: strings.TrimRight(strings.TrimSpace(opts.CustomDomain), "/"),
		pathStyle:    pathStyle,
		client:       &http.Client{Timeout: 45 * time.Second},
	}, nil
}

func (u *s3Uploader) Upload(ctx context.Context, objectKey string, payload []byte, contentType string) (string, error) {
	key := cleanObjectKey(objectKey)
	if key == "" {
		return "", fmt.Errorf("invalid s3 object key")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	target := u.target(key)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target.url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Host = target.host
	req.Header.Set("content-length", strconv.Itoa(len(payload)))
	req.Header.Set("content-type", contentType)

	u.sign(req, target, payload, time.Now().UTC())

	resp, err := u.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
		return "", fmt.Errorf("s3 upload failed: status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return u.publicURL(key), nil
}

// sign adds the SigV4 authorization headers to req. The signed header set is
// fixed, already in the sorted order the canonical request requires.
func (u *s3Uploader) sign(req *http.Request, t s3Target, payload []byte, now time.Time) {
	amzDate := now.Format("20060102T150405Z")
	dateStamp := now.Format("20060102")
	payloadHash := sha256Hex(payload)

	req.Header.Set("x-amz-content-sha256", payloadHash)
	req.Header.Set("x-amz-date", amzDate)

	signedHeaders := "content-length;content-type;host;x-amz-content-sha256;x-amz-date"
	canonicalHeaders := strings.Join([]string{
		"content-length:" + req.Header.Get("content-length"),
		"content-type:" + req.Header.Get("content-type"),
		"host:" + t.host,
		"x-amz-content-sha256:" + payloadHash,
		"x-amz-date:" + amzDate,
	}, "\n") + "\n"

	canonicalRequest := strings.Join([]string{
		http.MethodPut,
		t.canonicalURI,
		"", // no query string on uploads
		canonicalHeaders,
		signedHeaders,
		payloadHash,
	}, "\n")

	scope := dateStamp + "/" + u.region + "/s3/aws4_request"
	stringToSign := strings.Join([]string{
		"AWS4-HMAC-SHA256",
		amzDate,
		scope,
		sha256Hex([]byte(canonicalRequest)),
	}, "\n")

	// Key derivation chains HMACs from the secret through date, region and
	// service, per the SigV4 spec.
	k := hmacSHA256([]byte("AWS4"+u.secretKey), dateStamp)
	k = hmacSHA256(k, u.region)
	k = hmacSHA256(k, "s3")
	k = hmacSHA256(k, "aws4_request")
	signature := hex.EncodeToString(hmacSHA256(k, stringToSign))

	req.Header.Set("Authorization",
		"AWS4-HMAC-SHA256 Credential="+u.accessKey+"/"+scope+
			", SignedHeaders="+signedHeaders+
			", Signature="+signature)
}

type s3Target struct {
	url          string
	host         string
	canonicalURI string
}

func (u *s3Uploader) target(objectKey string) s3Target {
	encoded := encodeObjectKey(objectKey)
	base := strings.TrimSuffix(u.endpoint.Path, "/")

	host := u.endpoint.Host
	var uri string
	if u.pathStyle {
		uri = joinURLPath(base, u.bucket, encoded)
	} else {
		if !strings.HasPrefix(strings.ToLower(host), strings.ToLower(u.bucket)+".") {
			host = u.bucket + "." + host
		}
		uri = joinURLPath(base, encoded)
	}
	return s3Target{
		url:          u.endpoint.Scheme + "://" + host + uri,
		host:         host,
		canonicalURI: uri,
	}
}

func (u *s3Uploader) publicURL(objectKey string) string {
	if u.customDomain != "" {
		return u.customDomain + "/" + objectKey
	}
	return u.target(objectKey).url
}

func cleanObjectKey(key string) string {
	key = strings.TrimSpace(strings.ReplaceAll(key, "\\", "/"))
	key = strings.TrimPrefix(key, "/")
	for strings.Contains(key, "//") {
		key = strings.ReplaceAll(key, "//", "/")
	}
	return key
}

func encodeObjectKey(key string) string {
	parts := strings.Split(cleanObjectKey(key), "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

func joinURLPath(parts ...string) string {
	var segments []string
	for _, p := range parts {
		for _, seg := range strings.Split(p, "/") {
			if seg = strings.TrimSpace(seg); seg != "" {
				segments = append(segments, seg)
			}
		}
	}
	if len(segments) == 0 {
		return "/"
	}
	return "/" + strings.Join(segments, "/")
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func hmacSHA256(key []byte, data string) []byte {
	mac := hmac.New(sha256.New, key)
	_, _ = mac.Write([]byte(data))
	return mac.Sum(nil)
}
