package data

import (
	"context"

	"photogen-service/internal/biz"
	"photogen-service/internal/conf"
	apperrors "photogen-service/internal/errors"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	khttp "github.com/go-kratos/kratos/v2/transport/http"
)

// generateRequest 生成服务 HTTP 请求体
type generateRequest struct {
	SourceImageURL string `json:"source_image_url"`
	StyleID        string `json:"style_id"`
	AccountRef     string `json:"account_ref"`
	ApiKey         string `json:"api_key"`
}

// generateReply 生成服务 HTTP 响应体
type generateReply struct {
	Success      bool   `json:"success"`
	ImageURL     string `json:"image_url"`
	ErrorMessage string `json:"error_message"`
}

// providerClient 外部生成服务 HTTP 客户端实现（实现 biz.ProviderClient）
type providerClient struct {
	client *khttp.Client
	apiKey string
	log    *log.Helper
}

// NewProviderClient 创建生成服务客户端
// 客户端超时取配置值，单次调用仍受调用方 context 约束
func NewProviderClient(c *conf.Bootstrap, logger log.Logger) (biz.ProviderClient, error) {
	if c.Provider == nil {
		return nil, apperrors.NewProviderConfigNil("provider config is nil")
	}

	client, err := khttp.NewClient(
		context.Background(),
		khttp.WithEndpoint(c.Provider.Endpoint),
		khttp.WithTimeout(c.Provider.Timeout.AsDuration()),
		khttp.WithMiddleware(
			recovery.Recovery(),
		),
	)
	if err != nil {
		return nil, apperrors.NewProviderDialFailed("failed to create provider client", err)
	}

	return &providerClient{
		client: client,
		apiKey: c.Provider.ApiKey,
		log:    log.NewHelper(logger),
	}, nil
}

// GenerateImage 调用生成服务（实现 biz.ProviderClient 接口）
func (c *providerClient) GenerateImage(ctx context.Context, req *biz.GenerateImageRequest) (*biz.GenerateImageReply, error) {
	var reply generateReply
	err := c.client.Invoke(ctx, "POST", "/v1/generate", &generateRequest{
		SourceImageURL: req.SourceImageURL,
		StyleID:        req.StyleID,
		AccountRef:     req.AccountRef,
		ApiKey:         c.apiKey,
	}, &reply)
	if err != nil {
		c.log.Errorf("GenerateImage failed: account=%s, style=%s, error=%v", req.AccountRef, req.StyleID, err)
		return nil, err
	}
	if !reply.Success {
		c.log.Errorf("GenerateImage rejected: account=%s, style=%s, message=%s", req.AccountRef, req.StyleID, reply.ErrorMessage)
		return nil, apperrors.NewProviderFailure("generation provider rejected request: "+reply.ErrorMessage, nil)
	}

	return &biz.GenerateImageReply{ImageURL: reply.ImageURL}, nil
}
