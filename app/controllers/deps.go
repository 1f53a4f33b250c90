package controllers

import (
	"sync"

	"github.com/AlunoSync/AlunoSync/app/repository"
	"github.com/AlunoSync/AlunoSync/internal/pkg/mail"
	"github.com/AlunoSync/AlunoSync/internal/pkg/platform"
	"github.com/AlunoSync/AlunoSync/internal/pkg/reconcile"
	"github.com/AlunoSync/AlunoSync/internal/pkg/telegram"
)

// Shared service singletons. The repository factory must be initialized
// before the first request reaches any handler.
var (
	reconcileOnce sync.Once
	reconcileSvc  *reconcile.Service

	gatewayOnce sync.Once
	gateway     *telegram.Gateway

	kiwifyOnce   sync.Once
	kiwifyClient *platform.KiwifyClient

	hotmartOnce   sync.Once
	hotmartClient *platform.HotmartClient
)

// GetTelegramGateway returns the shared bot gateway instance
func GetTelegramGateway() *telegram.Gateway {
	gatewayOnce.Do(func() {
		gateway = telegram.NewGatewayFromEnv()
	})
	return gateway
}

// GetKiwifyClient returns the shared Kiwify API client instance
func GetKiwifyClient() *platform.KiwifyClient {
	kiwifyOnce.Do(func() {
		kiwifyClient = platform.NewKiwifyClientFromEnv()
	})
	return kiwifyClient
}

// GetHotmartClient returns the shared Hotmart API client instance
func GetHotmartClient() *platform.HotmartClient {
	hotmartOnce.Do(func() {
		hotmartClient = platform.NewHotmartClientFromEnv()
	})
	return hotmartClient
}

// GetReconcileService returns the shared reconciliation service instance
func GetReconcileService() *reconcile.Service {
	reconcileOnce.Do(func() {
		reconcileSvc = reconcile.NewService(
			repository.GetGlobalRepositories(),
			GetTelegramGateway(),
			mail.NewInviteMailer(),
			reconcile.NewSyncLock(),
		)
	})
	return reconcileSvc
}
