// Package memstore is an in-process core.Store used for development and tests.
// A single mutex serializes access; WithinTx holds it for the whole function and
// restores a snapshot when the function fails.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"coconut-erp/internal/core"

	"github.com/shopspring/decimal"
)

type dataset struct {
	producers   map[int]core.Producer
	loads       map[int]core.Load
	payables    map[int]core.Payable
	receivables map[int]core.Receivable
	analyses    map[int]core.QualityAnalysis
	ncs         map[int]core.NonConformity
	actions     map[int]core.CorrectiveAction
	items       map[int]core.WarehouseItem
	movements   map[int]core.WarehouseMovement
	batches     map[int]core.FinishedGoodsBatch

	ids   map[string]int
	ncSeq int64
}

func newDataset() *dataset {
	return &dataset{
		producers:   map[int]core.Producer{},
		loads:       map[int]core.Load{},
		payables:    map[int]core.Payable{},
		receivables: map[int]core.Receivable{},
		analyses:    map[int]core.QualityAnalysis{},
		ncs:         map[int]core.NonConformity{},
		actions:     map[int]core.CorrectiveAction{},
		items:       map[int]core.WarehouseItem{},
		movements:   map[int]core.WarehouseMovement{},
		batches:     map[int]core.FinishedGoodsBatch{},
		ids:         map[string]int{},
	}
}

func (d *dataset) clone() *dataset {
	return &dataset{
		producers:   cloneMap(d.producers),
		loads:       cloneMap(d.loads),
		payables:    cloneMap(d.payables),
		receivables: cloneMap(d.receivables),
		analyses:    cloneMap(d.analyses),
		ncs:         cloneMap(d.ncs),
		actions:     cloneMap(d.actions),
		items:       cloneMap(d.items),
		movements:   cloneMap(d.movements),
		batches:     cloneMap(d.batches),
		ids:         cloneMap(d.ids),
		ncSeq:       d.ncSeq,
	}
}

func (d *dataset) nextID(table string) int {
	d.ids[table]++
	return d.ids[table]
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// sortedValues returns the values of m ordered by key.
func sortedValues[V any](m map[int]V) []V {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	out := make([]V, 0, len(keys))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}

// Store implements core.Store in memory.
type Store struct {
	*repo
	mu   sync.Mutex
	data *dataset
	now  func() time.Time
}

var _ core.Store = (*Store)(nil)

func New() *Store {
	s := &Store{data: newDataset(), now: time.Now}
	s.repo = &repo{data: s.data, locker: &s.mu, now: s.now}
	return s
}

// SetClock replaces the function used to stamp CreatedAt/UpdatedAt.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	s.repo.now = now
}

// WithinTx runs fn with exclusive access to the data. Writes are undone if fn fails.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repo core.Repository) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(ctx, &repo{data: s.data, now: s.now}); err != nil {
		*s.data = *snapshot
		return err
	}
	return nil
}

// repo is the Repository implementation. locker is nil inside WithinTx, where the
// store mutex is already held.
type repo struct {
	data   *dataset
	locker sync.Locker
	now    func() time.Time
}

func (r *repo) lock() func() {
	if r.locker == nil {
		return func() {}
	}
	r.locker.Lock()
	return r.locker.Unlock
}

func get[V any](m map[int]V, id int) (*V, error) {
	v, ok := m[id]
	if !ok {
		return nil, core.ErrRecordNotFound
	}
	return &v, nil
}

func update[V any](m map[int]V, id int, v V) error {
	if _, ok := m[id]; !ok {
		return core.ErrRecordNotFound
	}
	m[id] = v
	return nil
}

// ── producers and loads ───────────────────────────────────────────────────────

func (r *repo) GetProducer(ctx context.Context, id int) (*core.Producer, error) {
	defer r.lock()()
	return get(r.data.producers, id)
}

func (r *repo) ListProducers(ctx context.Context) ([]core.Producer, error) {
	defer r.lock()()
	return sortedValues(r.data.producers), nil
}

func (r *repo) CreateProducer(ctx context.Context, p *core.Producer) error {
	defer r.lock()()
	p.ID = r.data.nextID("producers")
	p.CreatedAt = r.now()
	r.data.producers[p.ID] = *p
	return nil
}

func (r *repo) ListLoads(ctx context.Context, f core.LoadFilter) ([]core.Load, error) {
	defer r.lock()()
	var out []core.Load
	for _, l := range sortedValues(r.data.loads) {
		if f.ProducerID != 0 && l.ProducerID != f.ProducerID {
			continue
		}
		if f.Status != "" && l.Status != f.Status {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (r *repo) CreateLoad(ctx context.Context, l *core.Load) error {
	defer r.lock()()
	if _, ok := r.data.producers[l.ProducerID]; !ok {
		return core.ErrRecordNotFound
	}
	l.ID = r.data.nextID("loads")
	if l.ReceivedAt.IsZero() {
		l.ReceivedAt = r.now()
	}
	r.data.loads[l.ID] = *l
	return nil
}

// ── financial ─────────────────────────────────────────────────────────────────

func (r *repo) GetPayable(ctx context.Context, id int) (*core.Payable, error) {
	defer r.lock()()
	return get(r.data.payables, id)
}

func (r *repo) ListPayables(ctx context.Context, f core.PayableFilter) ([]core.Payable, error) {
	defer r.lock()()
	var out []core.Payable
	for _, p := range sortedValues(r.data.payables) {
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		if f.ProducerID != 0 && p.ProducerID != f.ProducerID {
			continue
		}
		if f.DueBefore != nil && !p.DueDate.Before(*f.DueBefore) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *repo) CreatePayable(ctx context.Context, p *core.Payable) error {
	defer r.lock()()
	p.ID = r.data.nextID("payables")
	p.CreatedAt = r.now()
	p.UpdatedAt = p.CreatedAt
	r.data.payables[p.ID] = *p
	return nil
}

func (r *repo) UpdatePayable(ctx context.Context, p *core.Payable) error {
	defer r.lock()()
	p.UpdatedAt = r.now()
	return update(r.data.payables, p.ID, *p)
}

func (r *repo) GetReceivable(ctx context.Context, id int) (*core.Receivable, error) {
	defer r.lock()()
	return get(r.data.receivables, id)
}

func (r *repo) ListReceivables(ctx context.Context, f core.ReceivableFilter) ([]core.Receivable, error) {
	defer r.lock()()
	var out []core.Receivable
	for _, rc := range sortedValues(r.data.receivables) {
		if f.Status != "" && rc.Status != f.Status {
			continue
		}
		if f.DueBefore != nil && !rc.DueDate.Before(*f.DueBefore) {
			continue
		}
		out = append(out, rc)
	}
	return out, nil
}

func (r *repo) CreateReceivable(ctx context.Context, rc *core.Receivable) error {
	defer r.lock()()
	rc.ID = r.data.nextID("receivables")
	rc.CreatedAt = r.now()
	rc.UpdatedAt = rc.CreatedAt
	r.data.receivables[rc.ID] = *rc
	return nil
}

func (r *repo) UpdateReceivable(ctx context.Context, rc *core.Receivable) error {
	defer r.lock()()
	rc.UpdatedAt = r.now()
	return update(r.data.receivables, rc.ID, *rc)
}

func (r *repo) GetDashboardStats(ctx context.Context, now time.Time) (*core.DashboardStats, error) {
	defer r.lock()()
	stats := &core.DashboardStats{
		PendingPayablesTotal: decimal.Zero,
		OverduePayablesTotal: decimal.Zero,
		PayablesNext30Days:   decimal.Zero,
	}
	horizon := now.AddDate(0, 0, 30)
	for _, p := range r.data.payables {
		if p.Status != core.PayablePending {
			continue
		}
		pending := p.PendingAmount()
		stats.PendingPayablesTotal = stats.PendingPayablesTotal.Add(pending)
		stats.PendingPayablesCount++
		switch {
		case p.DueDate.Before(now):
			stats.OverduePayablesTotal = stats.OverduePayablesTotal.Add(pending)
			stats.OverduePayablesCount++
		case !p.DueDate.After(horizon):
			stats.PayablesNext30Days = stats.PayablesNext30Days.Add(pending)
		}
	}
	return stats, nil
}

// ── quality ───────────────────────────────────────────────────────────────────

func cloneAnalysis(a core.QualityAnalysis) core.QualityAnalysis {
	a.Parameters = append([]core.AnalysisParameter(nil), a.Parameters...)
	return a
}

func (r *repo) GetAnalysis(ctx context.Context, id int) (*core.QualityAnalysis, error) {
	defer r.lock()()
	a, ok := r.data.analyses[id]
	if !ok {
		return nil, core.ErrRecordNotFound
	}
	a = cloneAnalysis(a)
	return &a, nil
}

func (r *repo) ListAnalyses(ctx context.Context, f core.AnalysisFilter) ([]core.QualityAnalysis, error) {
	defer r.lock()()
	var out []core.QualityAnalysis
	for _, a := range sortedValues(r.data.analyses) {
		if f.ReferenceType != "" && a.ReferenceType != f.ReferenceType {
			continue
		}
		if f.Result != "" && a.Result != f.Result {
			continue
		}
		if !inRange(a.CreatedAt, f.From, f.To) {
			continue
		}
		out = append(out, cloneAnalysis(a))
	}
	return out, nil
}

func (r *repo) CreateAnalysis(ctx context.Context, a *core.QualityAnalysis) error {
	defer r.lock()()
	a.ID = r.data.nextID("analyses")
	a.CreatedAt = r.now()
	r.data.analyses[a.ID] = cloneAnalysis(*a)
	return nil
}

func (r *repo) NextNCSequence(ctx context.Context) (int64, error) {
	defer r.lock()()
	r.data.ncSeq++
	return r.data.ncSeq, nil
}

func (r *repo) GetNC(ctx context.Context, id int) (*core.NonConformity, error) {
	defer r.lock()()
	return get(r.data.ncs, id)
}

func (r *repo) ListNCs(ctx context.Context, f core.NCFilter) ([]core.NonConformity, error) {
	defer r.lock()()
	var out []core.NonConformity
	for _, nc := range sortedValues(r.data.ncs) {
		if len(f.Statuses) > 0 && !containsStatus(f.Statuses, nc.Status) {
			continue
		}
		if f.Severity != "" && nc.Severity != f.Severity {
			continue
		}
		if f.AnalysisID != 0 && (nc.AnalysisID == nil || *nc.AnalysisID != f.AnalysisID) {
			continue
		}
		if !inRange(nc.CreatedAt, f.From, f.To) {
			continue
		}
		out = append(out, nc)
	}
	return out, nil
}

func (r *repo) CreateNC(ctx context.Context, nc *core.NonConformity) error {
	defer r.lock()()
	for _, existing := range r.data.ncs {
		if existing.NCNumber == nc.NCNumber {
			return core.ErrDuplicateRecord
		}
	}
	nc.ID = r.data.nextID("ncs")
	nc.CreatedAt = r.now()
	nc.UpdatedAt = nc.CreatedAt
	r.data.ncs[nc.ID] = *nc
	return nil
}

func (r *repo) UpdateNC(ctx context.Context, nc *core.NonConformity) error {
	defer r.lock()()
	nc.UpdatedAt = r.now()
	return update(r.data.ncs, nc.ID, *nc)
}

func (r *repo) CreateCorrectiveAction(ctx context.Context, ca *core.CorrectiveAction) error {
	defer r.lock()()
	if _, ok := r.data.ncs[ca.NonConformityID]; !ok {
		return core.ErrRecordNotFound
	}
	ca.ID = r.data.nextID("corrective_actions")
	ca.CreatedAt = r.now()
	r.data.actions[ca.ID] = *ca
	return nil
}

// CorrectiveActions returns the actions recorded for an NC. Not part of core.Repository.
func (s *Store) CorrectiveActions(ncID int) []core.CorrectiveAction {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.CorrectiveAction
	for _, ca := range sortedValues(s.data.actions) {
		if ca.NonConformityID == ncID {
			out = append(out, ca)
		}
	}
	return out
}

// ── stock ─────────────────────────────────────────────────────────────────────

func (r *repo) GetWarehouseItem(ctx context.Context, id int) (*core.WarehouseItem, error) {
	defer r.lock()()
	return get(r.data.items, id)
}

func (r *repo) GetWarehouseItemByCode(ctx context.Context, code string) (*core.WarehouseItem, error) {
	defer r.lock()()
	for _, item := range r.data.items {
		if item.InternalCode == code {
			return &item, nil
		}
	}
	return nil, core.ErrRecordNotFound
}

func (r *repo) ListWarehouseItems(ctx context.Context, f core.ItemFilter) ([]core.WarehouseItem, error) {
	defer r.lock()()
	var out []core.WarehouseItem
	for _, item := range sortedValues(r.data.items) {
		if item.Archived && !f.IncludeArchived {
			continue
		}
		if f.WarehouseType != "" && item.WarehouseType != f.WarehouseType {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

func (r *repo) CreateWarehouseItem(ctx context.Context, item *core.WarehouseItem) error {
	defer r.lock()()
	for _, existing := range r.data.items {
		if existing.InternalCode == item.InternalCode {
			return core.ErrDuplicateRecord
		}
	}
	item.ID = r.data.nextID("items")
	item.CreatedAt = r.now()
	item.UpdatedAt = item.CreatedAt
	r.data.items[item.ID] = *item
	return nil
}

func (r *repo) UpdateWarehouseItem(ctx context.Context, item *core.WarehouseItem) error {
	defer r.lock()()
	item.UpdatedAt = r.now()
	return update(r.data.items, item.ID, *item)
}

func (r *repo) CreateMovement(ctx context.Context, m *core.WarehouseMovement) error {
	defer r.lock()()
	if _, ok := r.data.items[m.ItemID]; !ok {
		return core.ErrRecordNotFound
	}
	m.ID = r.data.nextID("movements")
	m.CreatedAt = r.now()
	r.data.movements[m.ID] = *m
	return nil
}

func (r *repo) ListMovements(ctx context.Context, itemID int) ([]core.WarehouseMovement, error) {
	defer r.lock()()
	var out []core.WarehouseMovement
	for _, m := range sortedValues(r.data.movements) {
		if m.ItemID == itemID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *repo) GetBatch(ctx context.Context, id int) (*core.FinishedGoodsBatch, error) {
	defer r.lock()()
	return get(r.data.batches, id)
}

func (r *repo) ListBatches(ctx context.Context, f core.BatchFilter) ([]core.FinishedGoodsBatch, error) {
	defer r.lock()()
	var out []core.FinishedGoodsBatch
	for _, b := range sortedValues(r.data.batches) {
		if f.Status != "" && b.Status != f.Status {
			continue
		}
		if f.SKUID != 0 && b.SKUID != f.SKUID {
			continue
		}
		if f.ExpiringBefore != nil && b.ExpirationDate.After(*f.ExpiringBefore) {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (r *repo) CreateBatch(ctx context.Context, b *core.FinishedGoodsBatch) error {
	defer r.lock()()
	for _, existing := range r.data.batches {
		if existing.BatchCode == b.BatchCode {
			return core.ErrDuplicateRecord
		}
	}
	b.ID = r.data.nextID("batches")
	b.CreatedAt = r.now()
	b.UpdatedAt = b.CreatedAt
	r.data.batches[b.ID] = *b
	return nil
}

func (r *repo) UpdateBatch(ctx context.Context, b *core.FinishedGoodsBatch) error {
	defer r.lock()()
	b.UpdatedAt = r.now()
	return update(r.data.batches, b.ID, *b)
}

func inRange(t time.Time, from, to *time.Time) bool {
	if from != nil && t.Before(*from) {
		return false
	}
	if to != nil && t.After(*to) {
		return false
	}
	return true
}

func containsStatus(list []core.NCStatus, s core.NCStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
