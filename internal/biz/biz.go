package biz

import "github.com/google/wire"

// ProviderSet is biz providers.
var ProviderSet = wire.NewSet(
	NewCreditConfig,
	NewWalletUseCase,
	NewAllocationUseCase,
	NewRateLimitUseCase,
	NewGenerationUseCase,
	NewReconcileUseCase,
)
