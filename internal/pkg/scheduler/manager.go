package scheduler

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/AlunoSync/AlunoSync/internal/pkg/env"
	"github.com/AlunoSync/AlunoSync/internal/pkg/reconcile"
	"github.com/gofiber/fiber/v2/log"
)

// Manager runs the recurring reconciliation passes: the Kiwify sales sync,
// the Telegram group sweep, and the Hotmart subscription pull.
type Manager struct {
	service *reconcile.Service
	kiwify  reconcile.KiwifyAPI
	hotmart reconcile.HotmartAPI

	syncTicker    *time.Ticker
	sweepTicker   *time.Ticker
	hotmartTicker *time.Ticker
	stopCh        chan struct{}
	wg            sync.WaitGroup
	mu            sync.Mutex
	running       bool
}

var (
	globalManager *Manager
	managerOnce   sync.Once
)

// GetManager returns the global scheduler manager (singleton)
func GetManager() *Manager {
	managerOnce.Do(func() {
		globalManager = &Manager{
			stopCh: make(chan struct{}),
		}
	})
	return globalManager
}

// Configure wires the reconciliation service and platform clients. Must be
// called before Start.
func (m *Manager) Configure(service *reconcile.Service, kiwify reconcile.KiwifyAPI, hotmart reconcile.HotmartAPI) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.service = service
	m.kiwify = kiwify
	m.hotmart = hotmart
}

// Start starts the background reconciliation tickers
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}
	if m.service == nil {
		log.Error("[Scheduler] Start called before Configure, not starting")
		return
	}

	// Recreate stop channel for each start cycle so the manager can be restarted safely.
	m.stopCh = make(chan struct{})
	m.running = true
	log.Info("[Scheduler] Starting background reconciliation tasks")

	syncInterval := intervalFromEnv("SYNC_INTERVAL_MINUTES", 60)
	sweepInterval := intervalFromEnv("SWEEP_INTERVAL_MINUTES", 360)
	hotmartInterval := intervalFromEnv("HOTMART_SYNC_INTERVAL_MINUTES", 720)

	m.syncTicker = time.NewTicker(syncInterval)
	m.wg.Add(1)
	go m.salesSyncWorker()

	m.sweepTicker = time.NewTicker(sweepInterval)
	m.wg.Add(1)
	go m.sweepWorker()

	m.hotmartTicker = time.NewTicker(hotmartInterval)
	m.wg.Add(1)
	go m.hotmartWorker()

	log.Infof("[Scheduler] Started (sync=%s sweep=%s hotmart=%s)", syncInterval, sweepInterval, hotmartInterval)
}

// Stop stops the background tickers and waits for in-flight runs
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	log.Info("[Scheduler] Stopping background reconciliation tasks...")

	if m.syncTicker != nil {
		m.syncTicker.Stop()
	}
	if m.sweepTicker != nil {
		m.sweepTicker.Stop()
	}
	if m.hotmartTicker != nil {
		m.hotmartTicker.Stop()
	}

	close(m.stopCh)
	m.running = false

	m.wg.Wait()
	log.Info("[Scheduler] Stopped successfully")
}

// IsRunning returns whether the manager is currently running
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Manager) salesSyncWorker() {
	defer m.wg.Done()
	for {
		select {
		case <-m.stopCh:
			log.Info("[Scheduler] Sales sync worker stopping")
			return
		case <-m.syncTicker.C:
			results, err := m.service.SyncSales(context.Background(), m.kiwify, reconcile.SyncOptions{})
			if err != nil {
				log.Errorf("[Scheduler] Sales sync failed: %v", err)
				continue
			}
			log.Infof("[Scheduler] Sales sync %s: created=%d updated=%d processed=%d errors=%d",
				results.RunID, results.StudentsCreated, results.StudentsUpdated, results.SalesProcessed, len(results.Errors))
		}
	}
}

func (m *Manager) sweepWorker() {
	defer m.wg.Done()
	for {
		select {
		case <-m.stopCh:
			log.Info("[Scheduler] Sweep worker stopping")
			return
		case <-m.sweepTicker.C:
			results, err := m.service.SweepGroup(context.Background(), 0)
			if err != nil {
				log.Errorf("[Scheduler] Group sweep failed: %v", err)
				continue
			}
			log.Infof("[Scheduler] Group sweep %s: checked=%d removed=%d kept=%d errors=%d",
				results.RunID, results.Checked, results.Removed, results.Kept, len(results.Errors))
		}
	}
}

func (m *Manager) hotmartWorker() {
	defer m.wg.Done()
	for {
		select {
		case <-m.stopCh:
			log.Info("[Scheduler] Hotmart worker stopping")
			return
		case <-m.hotmartTicker.C:
			results, err := m.service.SyncHotmartStudents(context.Background(), m.hotmart, 0)
			if err != nil {
				log.Errorf("[Scheduler] Hotmart sync failed: %v", err)
				continue
			}
			for _, r := range results {
				if !r.Success {
					log.Errorf("[Scheduler] Hotmart sync for user %d failed: %s", r.UserID, r.Error)
					continue
				}
				log.Infof("[Scheduler] Hotmart sync for user %d: total=%d created=%d updated=%d skipped=%d",
					r.UserID, r.Total, r.Created, r.Updated, r.Skipped)
			}
		}
	}
}

func intervalFromEnv(key string, defMinutes int) time.Duration {
	if v := env.GetEnv(key, ""); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Minute
		}
	}
	return time.Duration(defMinutes) * time.Minute
}
