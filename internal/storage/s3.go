// Package storage はメディアファイルのアップロード先（S3互換オブジェクトストレージ）を扱う。
//
// サーバーはファイル本体を受け取らず、ブラウザが直接PUTするための署名付きURLを発行する。
package storage

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"github.com/hitoshi/marsblog/internal/model"
)

// DefaultExpiry は署名付きURLの有効期間。
const DefaultExpiry = time.Hour

// Config はS3互換ストレージの接続設定。
type Config struct {
	AccessKey string
	SecretKey string
	Endpoint  string // 例: https://nyc3.digitaloceanspaces.com
	Bucket    string
	Region    string
	CDNURL    string // 公開URLのベース。空の場合はバケットURLを使う
	Expiry    time.Duration
}

// Configured は必須項目がすべて設定されているかを返す。
func (c Config) Configured() bool {
	return c.AccessKey != "" && c.SecretKey != "" && c.Endpoint != "" && c.Bucket != ""
}

// Upload は発行した署名付きアップロードの情報。
type Upload struct {
	UploadURL string            `json:"upload_url"`
	Method    string            `json:"method"`
	Headers   map[string]string `json:"headers"` // PUT時に付与が必要なヘッダー
	PublicURL string            `json:"public_url"`
	Key       string            `json:"key"`
	MediaType string            `json:"media_type"`
	ExpiresAt time.Time         `json:"expires_at"`
}

// Presigner は署名付きアップロードURLを発行するインターフェース。
type Presigner interface {
	PresignUpload(ctx context.Context, filename, contentType string) (*Upload, error)
}

// S3Presigner はaws-sdk-go-v2を使用したPresignerの実装。
// 設定が不足している場合でも生成でき、その場合PresignUploadはConfigurationErrorを返す。
type S3Presigner struct {
	client *s3.PresignClient
	cfg    Config
	now    func() time.Time
}

// NewS3Presigner はS3Presignerを生成する。設定が不足している場合はAWS設定を読み込まない。
func NewS3Presigner(ctx context.Context, cfg Config) (*S3Presigner, error) {
	if cfg.Expiry <= 0 {
		cfg.Expiry = DefaultExpiry
	}
	p := &S3Presigner{cfg: cfg, now: time.Now}
	if !cfg.Configured() {
		return p, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
	})
	p.client = s3.NewPresignClient(client)
	return p, nil
}

// PresignUpload はファイル名とContent-Typeから一意なオブジェクトキーを決め、
// public-readでPUTするための署名付きURLを返す。
// 画像・動画以外のContent-TypeはValidationErrorを返す。
func (p *S3Presigner) PresignUpload(ctx context.Context, filename, contentType string) (*Upload, error) {
	if p.client == nil {
		return nil, &model.ConfigurationError{Service: "storage"}
	}

	mediaType, err := MediaTypeFor(contentType)
	if err != nil {
		return nil, err
	}

	key := ObjectKey(uuid.NewString(), filename)
	req, err := p.client.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.cfg.Bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
		ACL:         types.ObjectCannedACLPublicRead,
	}, s3.WithPresignExpires(p.cfg.Expiry))
	if err != nil {
		return nil, fmt.Errorf("failed to presign upload: %w", err)
	}

	return &Upload{
		UploadURL: req.URL,
		Method:    req.Method,
		Headers:   flattenHeader(req.SignedHeader),
		PublicURL: p.PublicURL(key),
		Key:       key,
		MediaType: mediaType,
		ExpiresAt: p.now().Add(p.cfg.Expiry).UTC(),
	}, nil
}

// PublicURL はオブジェクトキーに対応する公開URLを返す。
func (p *S3Presigner) PublicURL(key string) string {
	base := p.cfg.CDNURL
	if base == "" {
		base = bucketURL(p.cfg.Endpoint, p.cfg.Bucket)
	}
	return strings.TrimRight(base, "/") + "/" + key
}

// ObjectKey は "media/<id>/<スラッグ化したファイル名>" 形式のキーを返す。拡張子は小文字で保持する。
func ObjectKey(id, filename string) string {
	base := path.Base(strings.ReplaceAll(filename, `\`, "/"))
	ext := strings.ToLower(path.Ext(base))
	name := slug.Make(strings.TrimSuffix(base, path.Ext(base)))
	if name == "" {
		name = "file"
	}
	return "media/" + id + "/" + name + ext
}

// MediaTypeFor はContent-Typeから記事のメディア種別（image/video）を返す。
func MediaTypeFor(contentType string) (string, error) {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	switch {
	case strings.HasPrefix(ct, "image/"):
		return "image", nil
	case strings.HasPrefix(ct, "video/"):
		return "video", nil
	default:
		return "", &model.ValidationError{Field: "content_type", Reason: "only image and video uploads are supported"}
	}
}

// bucketURL はエンドポイントにバケット名をサブドメインとして付けたURLを返す。
func bucketURL(endpoint, bucket string) string {
	scheme := "https://"
	host := endpoint
	if i := strings.Index(endpoint, "://"); i >= 0 {
		scheme = endpoint[:i+3]
		host = endpoint[i+3:]
	}
	return scheme + bucket + "." + strings.TrimRight(host, "/")
}

func flattenHeader(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		if strings.EqualFold(k, "Host") || len(v) == 0 {
			continue
		}
		out[k] = v[0]
	}
	return out
}

// compile-time interface check
var _ Presigner = (*S3Presigner)(nil)
