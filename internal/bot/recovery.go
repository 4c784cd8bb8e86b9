package bot

import (
	"context"
	"fmt"

	"deltarb/internal/exchange"
	"deltarb/internal/models"
	"deltarb/pkg/utils"
)

// RecoveryManager восстанавливает состояние после рестарта: поднимает
// сохранённые позиции в реестр и сверяет их с живыми позициями площадок.
type RecoveryManager struct {
	store  PositionStore
	ledger *PositionLedger
	venues map[string]exchange.Exchange
	notify func(*models.Notification)
}

// RecoveryReport - итог восстановления
type RecoveryReport struct {
	Restored      int // позиций поднято из хранилища
	Matched       int // ног, подтверждённых площадками
	MissingLegs   int // ног из реестра, которых нет на площадке
	OrphanedLegs  int // позиций на площадках без записи в реестре
}

// NewRecoveryManager создает менеджер восстановления
func NewRecoveryManager(store PositionStore, ledger *PositionLedger, venues map[string]exchange.Exchange, notify func(*models.Notification)) *RecoveryManager {
	if notify == nil {
		notify = func(*models.Notification) {}
	}
	return &RecoveryManager{
		store:  store,
		ledger: ledger,
		venues: venues,
		notify: notify,
	}
}

// Recover загружает сохранённые позиции и сверяет их с площадками.
// Недоступность хранилища не фатальна: бот стартует с пустым реестром
// и пишет об этом.
func (r *RecoveryManager) Recover(ctx context.Context) (*RecoveryReport, error) {
	report := &RecoveryReport{}

	persisted, err := r.store.LoadAll()
	if err != nil {
		utils.Error("failed to load persisted positions, starting with empty ledger",
			utils.Err(err))
		r.notify(&models.Notification{
			Type:     models.NotificationTypeRecovery,
			Severity: models.SeverityError,
			Message:  fmt.Sprintf("position load failed: %v", err),
		})
		return report, err
	}

	r.ledger.Restore(persisted)
	report.Restored = r.ledger.Len()

	utils.Info("ledger restored",
		utils.Int("positions", report.Restored))

	// Живые позиции каждой площадки
	live := make(map[string]map[string]*exchange.Position) // exchange -> symbol -> position
	for name, venue := range r.venues {
		positions, err := venue.GetOpenPositions(ctx)
		if err != nil {
			utils.Warn("failed to fetch live positions",
				utils.Exchange(name),
				utils.Err(err))
			continue
		}
		bySymbol := make(map[string]*exchange.Position, len(positions))
		for _, p := range positions {
			bySymbol[p.Symbol] = p
		}
		live[name] = bySymbol
	}

	// Сверка реестра с площадками
	for _, p := range r.ledger.All() {
		r.checkLeg(report, live, p, p.LongExchange, p.LongSymbol, exchange.SideLong)
		r.checkLeg(report, live, p, p.ShortExchange, p.ShortSymbol, exchange.SideShort)
	}

	// Позиции площадок, которых нет в реестре
	known := r.knownLegs()
	for exchName, bySymbol := range live {
		for symbol, pos := range bySymbol {
			if known[exchName+"|"+symbol] {
				continue
			}
			report.OrphanedLegs++
			utils.Warn("orphaned position on venue",
				utils.Exchange(exchName),
				utils.Symbol(symbol),
				utils.Side(pos.Side),
				utils.Quantity(pos.Size))
			r.notify(&models.Notification{
				Type:     models.NotificationTypeRecovery,
				Severity: models.SeverityWarn,
				Message:  fmt.Sprintf("orphaned %s position %s on %s, not in ledger", pos.Side, symbol, exchName),
				Meta: map[string]interface{}{
					"exchange": exchName,
					"symbol":   symbol,
					"size":     pos.Size,
				},
			})
		}
	}

	r.notify(&models.Notification{
		Type:     models.NotificationTypeRecovery,
		Severity: models.SeverityInfo,
		Message: fmt.Sprintf("recovery complete: %d restored, %d matched, %d missing, %d orphaned",
			report.Restored, report.Matched, report.MissingLegs, report.OrphanedLegs),
	})

	return report, nil
}

// checkLeg сверяет одну ногу позиции с площадкой
func (r *RecoveryManager) checkLeg(report *RecoveryReport, live map[string]map[string]*exchange.Position, p *models.PositionState, exchName, symbol, side string) {
	bySymbol, ok := live[exchName]
	if !ok {
		// Площадка не ответила, сверка этой ноги невозможна
		return
	}

	pos, found := bySymbol[symbol]
	if !found || pos.Side != side {
		report.MissingLegs++
		utils.Error("ledger leg missing on venue",
			utils.PositionID(p.ID),
			utils.Exchange(exchName),
			utils.Symbol(symbol),
			utils.Side(side))
		r.notify(&models.Notification{
			Type:       models.NotificationTypeRecovery,
			Severity:   models.SeverityError,
			PositionID: &p.ID,
			Message:    fmt.Sprintf("%s leg %s missing on %s after restart", side, symbol, exchName),
		})
		return
	}

	report.Matched++
}

// knownLegs собирает все ноги реестра ключом exchange|symbol
func (r *RecoveryManager) knownLegs() map[string]bool {
	known := make(map[string]bool)
	for _, p := range r.ledger.All() {
		known[p.LongExchange+"|"+p.LongSymbol] = true
		known[p.ShortExchange+"|"+p.ShortSymbol] = true
	}
	return known
}
