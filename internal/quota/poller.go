package quota

import (
	"context"
	"encoding/json"
	"time"

	"github.com/llmhub-dev/llmhub/internal/adapter"
	"github.com/llmhub-dev/llmhub/internal/models"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	defaultPollInterval = 15 * time.Minute
	defaultProbeTimeout = 20 * time.Second
)

// Poller periodically probes each active credential's provider quota
// endpoint and stores the opaque payload on the key row.
type Poller struct {
	db           *gorm.DB
	registry     *adapter.Registry
	interval     time.Duration
	probeTimeout time.Duration
}

// NewPoller constructs a quota-info poller.
func NewPoller(db *gorm.DB, registry *adapter.Registry) *Poller {
	if db == nil || registry == nil {
		return nil
	}
	return &Poller{
		db:           db,
		registry:     registry,
		interval:     defaultPollInterval,
		probeTimeout: defaultProbeTimeout,
	}
}

// Start launches the polling loop in a background goroutine.
func (p *Poller) Start(ctx context.Context) {
	if p == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	go p.run(ctx)
	log.Infof("quota poller started (interval=%s)", p.interval)
}

func (p *Poller) run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		p.poll(ctx)
		timer := time.NewTimer(p.interval)
		select {
		case <-ctx.Done():
			if !timer.Stop() {
				<-timer.C
			}
			return
		case <-timer.C:
		}
	}
}

// poll probes every active key once.
func (p *Poller) poll(ctx context.Context) {
	var keys []models.ProviderKey
	if errFind := p.db.WithContext(ctx).
		Where("active = ?", true).
		Order("id ASC").
		Find(&keys).Error; errFind != nil {
		log.WithError(errFind).Warn("quota poller: load keys failed")
		return
	}

	for i := range keys {
		if ctx.Err() != nil {
			return
		}
		p.probeKey(ctx, &keys[i])
	}
}

func (p *Poller) probeKey(ctx context.Context, key *models.ProviderKey) {
	a, ok := p.registry.Lookup(key.Provider)
	if !ok {
		return
	}

	probeCtx, cancel := context.WithTimeout(ctx, p.probeTimeout)
	defer cancel()

	info, errProbe := a.QuotaInfo(probeCtx, key.KeyValue)
	if errProbe != nil {
		log.WithError(errProbe).Warnf("quota poller: probe failed for key %d (%s)", key.ID, key.Provider)
		return
	}

	payload, errMarshal := json.Marshal(info)
	if errMarshal != nil {
		log.WithError(errMarshal).Warnf("quota poller: marshal probe for key %d", key.ID)
		return
	}

	if errUpdate := p.db.WithContext(ctx).
		Model(&models.ProviderKey{}).
		Where("id = ?", key.ID).
		Update("quota_info", payload).Error; errUpdate != nil {
		log.WithError(errUpdate).Warnf("quota poller: store probe for key %d", key.ID)
	}
}
