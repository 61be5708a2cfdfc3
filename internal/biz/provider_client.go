package biz

import "context"

// ProviderClient 外部生成服务客户端接口
// 对端是不可靠的慢调用（可能数十秒），必须接受调用方的超时/取消；
// 编排器内部不做重试
type ProviderClient interface {
	GenerateImage(ctx context.Context, req *GenerateImageRequest) (*GenerateImageReply, error)
}

// GenerateImageRequest 生成请求
type GenerateImageRequest struct {
	SourceImageURL string // 现场拍摄的原图
	StyleID        string
	AccountRef     string // 账户上下文，透传给生成服务做审计
}

// GenerateImageReply 生成响应
type GenerateImageReply struct {
	ImageURL string
}
