package service

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/therafiali/internal-app-sub000/internal/models"
	"github.com/therafiali/internal-app-sub000/internal/repository"
)

var testNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return testNow }

type requestPtr[T any] interface {
	*T
	models.Request
}

// memStore is an in-memory request table honouring the status and lock guards.
type memStore[T any, P requestPtr[T]] struct {
	mu     sync.Mutex
	prefix string
	seq    int
	rows   map[string]P
}

func newMemStore[T any, P requestPtr[T]](prefix string) *memStore[T, P] {
	return &memStore[T, P]{prefix: prefix, rows: make(map[string]P)}
}

func (m *memStore[T, P]) Create(_ context.Context, req P) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	base := req.Base()
	if base.ID == "" {
		base.ID = uuid.NewString()
	}
	base.DisplayID = fmt.Sprintf("%s-%06d", m.prefix, m.seq)
	base.ProcessingState = models.IdleState()
	base.CreatedAt = testNow
	base.UpdatedAt = testNow
	setColumn(reflect.ValueOf(req).Elem(), "status", "pending")
	cp := *req
	m.rows[base.ID] = P(&cp)
	return nil
}

func (m *memStore[T, P]) put(req P) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *req
	m.rows[req.Base().ID] = P(&cp)
}

func (m *memStore[T, P]) GetByID(_ context.Context, id string) (P, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *row
	return P(&cp), nil
}

func (m *memStore[T, P]) GetForUpdate(ctx context.Context, id string) (P, error) {
	return m.GetByID(ctx, id)
}

func (m *memStore[T, P]) List(_ context.Context, filter models.RequestFilter) ([]T, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []T
	for _, row := range m.rows {
		base := row.Base()
		if !filter.AllTeams && !contains(filter.Teams, base.TeamCode) {
			continue
		}
		if filter.TeamCode != "" && base.TeamCode != filter.TeamCode {
			continue
		}
		if len(filter.Statuses) > 0 && !contains(filter.Statuses, row.CurrentStatus()) {
			continue
		}
		out = append(out, *row)
	}
	return out, len(out), nil
}

func (m *memStore[T, P]) UpdateStatus(_ context.Context, u repository.StatusUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[u.ID]
	if !ok || row.CurrentStatus() != u.From {
		return repository.ErrStale
	}
	base := row.Base()
	if u.RequireLock && base.ProcessingState.Status == models.ProcessingInProgress && !base.ProcessingState.HeldBy(u.Actor) {
		return repository.ErrStale
	}
	v := reflect.ValueOf(row).Elem()
	setColumn(v, "status", u.To)
	for col, val := range u.Fields {
		if !setColumn(v, col, val) {
			return fmt.Errorf("unknown column %s", col)
		}
	}
	base.UpdatedAt = u.At
	if u.Actor != "" {
		actor := u.Actor
		at := u.At
		base.ProcessedBy = &actor
		base.ProcessedAt = &at
	}
	if u.ReleaseLock {
		base.ProcessingState = models.IdleState()
	}
	return nil
}

func (m *memStore[T, P]) tryAcquire(id, operator string, modal models.ModalType, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return false, nil
	}
	base := row.Base()
	if base.ProcessingState.Status != models.ProcessingIdle {
		return false, nil
	}
	by := operator
	lockedAt := at
	base.ProcessingState = models.ProcessingState{Status: models.ProcessingInProgress, By: &by, Modal: modal, LockedAt: &lockedAt}
	return true, nil
}

func (m *memStore[T, P]) renew(id, operator string, modal models.ModalType, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return false, nil
	}
	state := &row.Base().ProcessingState
	if state.Status != models.ProcessingInProgress || !state.HeldBy(operator) {
		return false, nil
	}
	lockedAt := at
	state.LockedAt = &lockedAt
	state.Modal = modal
	return true, nil
}

func (m *memStore[T, P]) release(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if row, ok := m.rows[id]; ok {
		row.Base().ProcessingState = models.IdleState()
	}
}

func (m *memStore[T, P]) ref(id string) (*models.RequestRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	base := row.Base()
	return &models.RequestRef{ID: id, TeamCode: base.TeamCode, Status: row.CurrentStatus(), ProcessingState: base.ProcessingState}, nil
}

func (m *memStore[T, P]) sweep(olderThan time.Time) []repository.SweptLock {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []repository.SweptLock
	for id, row := range m.rows {
		base := row.Base()
		if base.ProcessingState.Status == models.ProcessingInProgress && base.ProcessingState.LockedAt != nil && base.ProcessingState.LockedAt.Before(olderThan) {
			base.ProcessingState = models.IdleState()
			out = append(out, repository.SweptLock{Type: row.Type(), ID: id, TeamCode: base.TeamCode, Status: row.CurrentStatus()})
		}
	}
	return out
}

func (m *memStore[T, P]) snapshot() func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	saved := make(map[string]P, len(m.rows))
	for id, row := range m.rows {
		cp := *row
		saved[id] = P(&cp)
	}
	seq := m.seq
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.rows = saved
		m.seq = seq
	}
}

// setColumn assigns val to the field tagged db:"col", converting as needed.
func setColumn(v reflect.Value, col string, val interface{}) bool {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		fv := v.Field(i)
		if f.Anonymous {
			if setColumn(fv, col, val) {
				return true
			}
			continue
		}
		if f.Tag.Get("db") != col {
			continue
		}
		if val == nil {
			fv.Set(reflect.Zero(f.Type))
			return true
		}
		rv := reflect.ValueOf(val)
		if f.Type.Kind() == reflect.Ptr {
			p := reflect.New(f.Type.Elem())
			p.Elem().Set(rv.Convert(f.Type.Elem()))
			fv.Set(p)
		} else {
			fv.Set(rv.Convert(f.Type))
		}
		return true
	}
	return false
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

type memRecharges = memStore[models.Recharge, *models.Recharge]
type memTransfers = memStore[models.Transfer, *models.Transfer]
type memResets = memStore[models.PasswordReset, *models.PasswordReset]

// memRedeems adds the hold arithmetic guard.
type memRedeems struct {
	*memStore[models.Redeem, *models.Redeem]
}

func (m *memRedeems) AdjustHold(_ context.Context, id string, delta decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return repository.ErrStale
	}
	hold := row.AmountHold.Add(delta)
	if hold.IsNegative() || row.AmountPaid.Add(hold).GreaterThan(row.TotalAmount) {
		return repository.ErrStale
	}
	row.AmountHold = hold
	return nil
}

// memLocks dispatches lock operations to the per-type stores.
type memLocks struct {
	recharges *memRecharges
	redeems   *memRedeems
	transfers *memTransfers
	resets    *memResets
}

func (l *memLocks) TryAcquire(_ context.Context, t models.RequestType, id, operator string, modal models.ModalType, at time.Time) (bool, error) {
	switch t {
	case models.RequestTypeRecharge:
		return l.recharges.tryAcquire(id, operator, modal, at)
	case models.RequestTypeRedeem:
		return l.redeems.tryAcquire(id, operator, modal, at)
	case models.RequestTypeTransfer:
		return l.transfers.tryAcquire(id, operator, modal, at)
	}
	return l.resets.tryAcquire(id, operator, modal, at)
}

func (l *memLocks) Renew(_ context.Context, t models.RequestType, id, operator string, modal models.ModalType, at time.Time) (bool, error) {
	switch t {
	case models.RequestTypeRecharge:
		return l.recharges.renew(id, operator, modal, at)
	case models.RequestTypeRedeem:
		return l.redeems.renew(id, operator, modal, at)
	case models.RequestTypeTransfer:
		return l.transfers.renew(id, operator, modal, at)
	}
	return l.resets.renew(id, operator, modal, at)
}

func (l *memLocks) Release(_ context.Context, t models.RequestType, id string) error {
	switch t {
	case models.RequestTypeRecharge:
		l.recharges.release(id)
	case models.RequestTypeRedeem:
		l.redeems.release(id)
	case models.RequestTypeTransfer:
		l.transfers.release(id)
	default:
		l.resets.release(id)
	}
	return nil
}

func (l *memLocks) Ref(_ context.Context, t models.RequestType, id string) (*models.RequestRef, error) {
	switch t {
	case models.RequestTypeRecharge:
		return l.recharges.ref(id)
	case models.RequestTypeRedeem:
		return l.redeems.ref(id)
	case models.RequestTypeTransfer:
		return l.transfers.ref(id)
	}
	return l.resets.ref(id)
}

func (l *memLocks) Sweep(_ context.Context, olderThan time.Time) ([]repository.SweptLock, error) {
	var out []repository.SweptLock
	out = append(out, l.recharges.sweep(olderThan)...)
	out = append(out, l.redeems.sweep(olderThan)...)
	out = append(out, l.transfers.sweep(olderThan)...)
	out = append(out, l.resets.sweep(olderThan)...)
	return out, nil
}

type memPlayers struct {
	mu      sync.Mutex
	players map[string]*models.Player
}

func newMemPlayers() *memPlayers {
	return &memPlayers{players: make(map[string]*models.Player)}
}

func (m *memPlayers) Ensure(_ context.Context, p *models.Player) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.players[p.VIPCode]; ok {
		existing.PlayerName = p.PlayerName
		if p.TeamCode != "" && existing.TeamCode != p.TeamCode {
			return repository.ErrPlayerTeamMismatch
		}
		return nil
	}
	cp := *p
	cp.GameLimits = models.GameLimits{}
	m.players[p.VIPCode] = &cp
	return nil
}

func (m *memPlayers) FindByVIPCode(_ context.Context, vip string) (*models.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[vip]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *p
	return &cp, nil
}

func (m *memPlayers) GetForUpdate(ctx context.Context, vip string) (*models.Player, error) {
	return m.FindByVIPCode(ctx, vip)
}

func (m *memPlayers) UpdateRedeemCounters(_ context.Context, vip string, total decimal.Decimal, limits models.GameLimits, lastReset time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[vip]
	if !ok {
		return sql.ErrNoRows
	}
	p.TotalRedeemed = total
	p.GameLimits = limits
	p.LastResetTime = &lastReset
	return nil
}

func (m *memPlayers) Ban(_ context.Context, vip, reason string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[vip]
	if !ok {
		return sql.ErrNoRows
	}
	p.Banned = true
	p.BanReason = &reason
	p.BannedAt = &at
	return nil
}

func (m *memPlayers) snapshot() func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	saved := make(map[string]*models.Player, len(m.players))
	for k, p := range m.players {
		cp := *p
		cp.GameLimits = models.GameLimits{}
		for g, v := range p.GameLimits {
			cp.GameLimits[g] = v
		}
		saved[k] = &cp
	}
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.players = saved
	}
}

type memIdentifiers struct {
	mu   sync.Mutex
	used map[string]string
}

func newMemIdentifiers() *memIdentifiers {
	return &memIdentifiers{used: make(map[string]string)}
}

func (m *memIdentifiers) Insert(_ context.Context, ident *models.RechargeIdentifier) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.used[ident.Identifier]; ok {
		return repository.ErrDuplicate
	}
	m.used[ident.Identifier] = ident.RechargeID
	return nil
}

func (m *memIdentifiers) snapshot() func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	saved := make(map[string]string, len(m.used))
	for k, v := range m.used {
		saved[k] = v
	}
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.used = saved
	}
}

type snapshotter interface {
	snapshot() func()
}

type memTxKey struct{}

// memTx restores every registered store when the callback fails. Nested
// calls join the outer transaction.
type memTx struct {
	mu     sync.Mutex
	stores []snapshotter
	calls  int
}

func (t *memTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(memTxKey{}) != nil {
		return fn(ctx)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls++
	ctx = context.WithValue(ctx, memTxKey{}, true)
	restores := make([]func(), 0, len(t.stores))
	for _, s := range t.stores {
		restores = append(restores, s.snapshot())
	}
	if err := fn(ctx); err != nil {
		for _, restore := range restores {
			restore()
		}
		return err
	}
	return nil
}

type recordingEvents struct {
	mu     sync.Mutex
	events []models.ChangeEvent
}

func (r *recordingEvents) Publish(_ context.Context, e models.ChangeEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordingEvents) all() []models.ChangeEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.ChangeEvent(nil), r.events...)
}

type recordingAudit struct {
	mu   sync.Mutex
	logs []*models.AuditLog
}

func (r *recordingAudit) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, log)
	return nil
}

func (r *recordingAudit) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.logs))
	for _, l := range r.logs {
		out = append(out, l.Action)
	}
	return out
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []Notification
}

func (r *recordingNotifier) Notify(_ context.Context, n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
}

func (r *recordingNotifier) templates() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.sent))
	for _, n := range r.sent {
		out = append(out, n.Template)
	}
	return out
}

type stubPromotions struct {
	promos map[string]models.Promotion
}

func (s stubPromotions) Resolve(_ context.Context, code, team string) (*models.Promotion, error) {
	p, ok := s.promos[code]
	if !ok || !p.AppliesTo(team) {
		return nil, fmt.Errorf("promo %s unavailable", code)
	}
	return &p, nil
}

// world wires every service against shared in-memory stores.
type world struct {
	recharges   *memRecharges
	redeems     *memRedeems
	transfers   *memTransfers
	resets      *memResets
	players     *memPlayers
	identifiers *memIdentifiers
	locks       *memLocks
	tx          *memTx
	events      *recordingEvents
	audit       *recordingAudit
	notifier    *recordingNotifier
	metrics     *MetricsService

	rechargeSvc *RechargeService
	redeemSvc   *RedeemService
	transferSvc *TransferService
	resetSvc    *PasswordResetService
	lockSvc     *LockService
}

func newWorld() *world {
	w := &world{
		recharges:   newMemStore[models.Recharge, *models.Recharge]("RCH"),
		redeems:     &memRedeems{newMemStore[models.Redeem, *models.Redeem]("RDM")},
		transfers:   newMemStore[models.Transfer, *models.Transfer]("TRF"),
		resets:      newMemStore[models.PasswordReset, *models.PasswordReset]("RST"),
		players:     newMemPlayers(),
		identifiers: newMemIdentifiers(),
		events:      &recordingEvents{},
		audit:       &recordingAudit{},
		notifier:    &recordingNotifier{},
		metrics:     NewMetricsService(),
	}
	w.locks = &memLocks{recharges: w.recharges, redeems: w.redeems, transfers: w.transfers, resets: w.resets}
	w.tx = &memTx{stores: []snapshotter{w.recharges, w.redeems, w.transfers, w.resets, w.players, w.identifiers}}

	deps := FlowDeps{
		Tx:       w.tx,
		Audit:    w.audit,
		Events:   w.events,
		Notifier: w.notifier,
		Metrics:  w.metrics,
		Now:      fixedNow,
	}
	promos := stubPromotions{promos: map[string]models.Promotion{
		"BONUS10": {Code: "BONUS10", Type: models.PromotionPercentage, Value: decimal.NewFromInt(10), Active: true},
	}}
	w.rechargeSvc = NewRechargeService(w.recharges, w.redeems, w.identifiers, w.players, promos, deps)
	w.redeemSvc = NewRedeemService(w.redeems, w.players, DefaultRedeemLimits(), deps)
	w.transferSvc = NewTransferService(w.transfers, w.players, deps)
	w.resetSvc = NewPasswordResetService(w.resets, w.players, deps)
	w.lockSvc = NewLockService(w.locks, NewRequestLoader(w.recharges, w.redeems, w.transfers, w.resets), 10*time.Minute, deps)
	return w
}

func operator(id string, dept models.Department, teams ...string) *models.JWTClaims {
	return &models.JWTClaims{UserID: id, Department: dept, TeamAccess: teams}
}

func seedRecharge(w *world, team string, status models.RechargeStatus, amount int64) *models.Recharge {
	id := uuid.NewString()
	messenger := "sub-" + id[:8]
	rec := &models.Recharge{
		RequestBase: models.RequestBase{
			ID:              id,
			DisplayID:       "RCH-" + id[:8],
			VIPCode:         "VIP-" + id[:8],
			PlayerName:      "Player " + id[:8],
			MessengerID:     &messenger,
			TeamCode:        team,
			CreatedAt:       testNow.Add(-time.Hour),
			ProcessingState: models.IdleState(),
		},
		Status:        status,
		Amount:        decimal.NewFromInt(amount),
		BonusAmount:   decimal.Zero,
		GamePlatform:  "orion",
		GameUsername:  "user-" + id[:8],
		PaymentMethod: models.PaymentMethod{Type: models.PaymentCashApp, Tag: "$player"},
		DepositStatus: models.DepositPending,
	}
	w.recharges.put(rec)
	return rec
}

func seedRedeem(w *world, team string, status models.RedeemStatus, total int64) *models.Redeem {
	id := uuid.NewString()
	messenger := "sub-" + id[:8]
	red := &models.Redeem{
		RequestBase: models.RequestBase{
			ID:              id,
			DisplayID:       "RDM-" + id[:8],
			VIPCode:         "VIP-" + id[:8],
			PlayerName:      "Player " + id[:8],
			MessengerID:     &messenger,
			TeamCode:        team,
			CreatedAt:       testNow.Add(-2 * time.Hour),
			ProcessingState: models.IdleState(),
		},
		Status:       status,
		TotalAmount:  decimal.NewFromInt(total),
		AmountPaid:   decimal.Zero,
		AmountHold:   decimal.Zero,
		GamePlatform: "orion",
		GameUsername: "redeemer-" + id[:8],
		PaymentMethods: models.PaymentMethods{
			{Type: models.PaymentVenmo, Tag: "@redeemer"},
		},
	}
	w.redeems.put(red)
	return red
}
