package server

import (
	"photogen-service/internal/conf"
	"photogen-service/internal/service"

	"github.com/gaoyong06/go-pkg/middleware/app_id"
	pkgUtils "github.com/gaoyong06/go-pkg/utils"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	khttp "github.com/go-kratos/kratos/v2/transport/http"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewHTTPServer 创建 HTTP 服务器
func NewHTTPServer(c *conf.Bootstrap, photogen *service.PhotogenService, admin *service.PhotogenAdminService) *khttp.Server {
	var opts = []khttp.ServerOption{
		khttp.Middleware(
			recovery.Recovery(),
			// app_id 中间件放在最前，保证下游能从 Context 取到 appId
			app_id.Middleware(),
		),
	}
	if c.Server != nil && c.Server.Http != nil {
		if c.Server.Http.Network != "" {
			opts = append(opts, khttp.Network(c.Server.Http.Network))
		}
		if c.Server.Http.Addr != "" {
			opts = append(opts, khttp.Address(c.Server.Http.Addr))
		}
		if c.Server.Http.Timeout != "" {
			opts = append(opts, khttp.Timeout(c.Server.Http.Timeout.AsDuration()))
		}
	}
	srv := khttp.NewServer(opts...)

	srv.Handle("/metrics", promhttp.Handler())
	registerRoutes(srv, photogen, admin)
	return srv
}

func registerRoutes(srv *khttp.Server, photogen *service.PhotogenService, admin *service.PhotogenAdminService) {
	r := srv.Route("/")

	// 生成
	r.POST("/v1/generate", func(ctx khttp.Context) error {
		var req service.GenerateRequest
		if err := ctx.Bind(&req); err != nil {
			return err
		}
		req.ClientIP = pkgUtils.GetClientIP(ctx)
		reply, err := photogen.Generate(ctx, &req)
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})

	// 余额
	r.GET("/v1/balance/{kind}/{id}", func(ctx khttp.Context) error {
		var req service.GetBalanceRequest
		if err := ctx.BindVars(&req); err != nil {
			return err
		}
		reply, err := photogen.GetBalance(ctx, &req)
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})

	// 钱包流水
	r.GET("/v1/transactions/{kind}/{id}", func(ctx khttp.Context) error {
		var req service.ListTransactionsRequest
		if err := ctx.BindQuery(&req); err != nil {
			return err
		}
		if err := ctx.BindVars(&req); err != nil {
			return err
		}
		reply, err := photogen.ListTransactions(ctx, &req)
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})

	// 生成记录
	r.GET("/v1/records/{kind}/{id}", func(ctx khttp.Context) error {
		var req service.ListRecordsRequest
		if err := ctx.BindQuery(&req); err != nil {
			return err
		}
		if err := ctx.BindVars(&req); err != nil {
			return err
		}
		reply, err := photogen.ListRecords(ctx, &req)
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})

	// 活动风格榜单
	r.GET("/v1/events/{event_id}/top-styles", func(ctx khttp.Context) error {
		var req service.TopStylesRequest
		if err := ctx.BindQuery(&req); err != nil {
			return err
		}
		if err := ctx.BindVars(&req); err != nil {
			return err
		}
		reply, err := photogen.TopStyles(ctx, &req)
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})

	// ========== 运营后台 ==========

	// 充值（合作方/散客）
	r.POST("/v1/admin/topup", func(ctx khttp.Context) error {
		var req service.TopUpRequest
		if err := ctx.Bind(&req); err != nil {
			return err
		}
		reply, err := admin.TopUp(ctx, &req)
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})

	// 创建活动（含首次划拨）
	r.POST("/v1/admin/events", func(ctx khttp.Context) error {
		var req service.CreateEventRequest
		if err := ctx.Bind(&req); err != nil {
			return err
		}
		reply, err := admin.CreateEvent(ctx, &req)
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})

	// 追加划拨
	r.POST("/v1/admin/allocations", func(ctx khttp.Context) error {
		var req service.AllocateRequest
		if err := ctx.Bind(&req); err != nil {
			return err
		}
		reply, err := admin.Allocate(ctx, &req)
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})

	// 全量对账
	r.POST("/v1/admin/reconcile", func(ctx khttp.Context) error {
		reply, err := admin.Reconcile(ctx)
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})
}
