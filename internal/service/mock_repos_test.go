package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"nautica/backend/internal/model"
	pkgerrors "nautica/backend/pkg/errors"
)

// 所有 mock 都加锁，并发准入测试在 -race 下同样有效

// ── Mock UserRepository ──

type mockUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) put(u *model.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.UserID] = u
}

// ── Mock VesselRepository ──

type mockVesselRepo struct {
	mu      sync.Mutex
	vessels map[string]*model.Vessel
	members map[string]bool // vesselID + "/" + userID
	gets    int
}

func newMockVesselRepo() *mockVesselRepo {
	return &mockVesselRepo{
		vessels: make(map[string]*model.Vessel),
		members: make(map[string]bool),
	}
}

func (m *mockVesselRepo) GetByID(_ context.Context, id string) (*model.Vessel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	if v, ok := m.vessels[id]; ok {
		cp := *v
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockVesselRepo) IsMember(_ context.Context, vesselID, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.members[vesselID+"/"+userID], nil
}

func (m *mockVesselRepo) put(v *model.Vessel, memberIDs ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vessels[v.VesselID] = v
	for _, uid := range memberIDs {
		m.members[v.VesselID+"/"+uid] = true
	}
}

// ── Mock BookingRepository ──
// Create 与数据库唯一索引一致：(vessel, date) 在所有行上唯一，包括软删除的行

type mockBookingRepo struct {
	mu         sync.Mutex
	bookings   map[string]*model.Booking
	deleted    map[string]bool
	seq        int
	rangeLists int
	updateErr  error
}

func newMockBookingRepo() *mockBookingRepo {
	return &mockBookingRepo{
		bookings: make(map[string]*model.Booking),
		deleted:  make(map[string]bool),
	}
}

func (m *mockBookingRepo) Create(_ context.Context, booking *model.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.bookings {
		if b.VesselID == booking.VesselID && b.BookingDate.Equal(booking.BookingDate) {
			return pkgerrors.ErrDuplicateKey
		}
	}
	m.seq++
	if booking.BookingID == "" {
		booking.BookingID = fmt.Sprintf("bk-%03d", m.seq)
	}
	booking.Version = 1
	booking.CreatedAt = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	cp := *booking
	m.bookings[booking.BookingID] = &cp
	return nil
}

func (m *mockBookingRepo) GetByID(_ context.Context, id string) (*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok || m.deleted[id] {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *mockBookingRepo) ExistsForSlot(_ context.Context, vesselID string, day time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, b := range m.bookings {
		if !m.deleted[id] && b.VesselID == vesselID && b.BookingDate.Equal(day) {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockBookingRepo) CountActive(_ context.Context, userID, vesselID string, asOf time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, b := range m.bookings {
		if m.deleted[id] || b.UserID != userID || b.VesselID != vesselID || !b.IsActive() {
			continue
		}
		if !b.BookingDate.Before(asOf) {
			n++
		}
	}
	return n, nil
}

func (m *mockBookingRepo) EarliestActive(_ context.Context, userID, vesselID string, asOf time.Time) (*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var earliest *model.Booking
	for id, b := range m.bookings {
		if m.deleted[id] || b.UserID != userID || b.VesselID != vesselID || !b.IsActive() || b.BookingDate.Before(asOf) {
			continue
		}
		if earliest == nil || b.BookingDate.Before(earliest.BookingDate) {
			earliest = b
		}
	}
	if earliest == nil {
		return nil, nil
	}
	cp := *earliest
	return &cp, nil
}

func (m *mockBookingRepo) ListByVesselRange(_ context.Context, vesselID string, start, end time.Time) ([]model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rangeLists++
	var result []model.Booking
	for id, b := range m.bookings {
		if m.deleted[id] || b.VesselID != vesselID {
			continue
		}
		if b.BookingDate.Before(start) || b.BookingDate.After(end) {
			continue
		}
		result = append(result, *b)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].BookingDate.Before(result[j].BookingDate) })
	return result, nil
}

func (m *mockBookingRepo) ListByUser(_ context.Context, userID string, from *time.Time) ([]model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.Booking
	for id, b := range m.bookings {
		if m.deleted[id] || b.UserID != userID {
			continue
		}
		if from != nil && b.BookingDate.Before(*from) {
			continue
		}
		result = append(result, *b)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].BookingDate.Before(result[j].BookingDate) })
	return result, nil
}

func (m *mockBookingRepo) Update(_ context.Context, booking *model.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	cur, ok := m.bookings[booking.BookingID]
	if !ok || m.deleted[booking.BookingID] || cur.Version != booking.Version {
		return pkgerrors.ErrOptimisticLock
	}
	booking.Version++
	cp := *booking
	m.bookings[booking.BookingID] = &cp
	return nil
}

func (m *mockBookingRepo) SoftDelete(_ context.Context, id string, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted[id] = true
	return nil
}

// seed 直接写入一条预约，绕过准入规则
func (m *mockBookingRepo) seed(b *model.Booking) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b.Version == 0 {
		b.Version = 1
	}
	m.bookings[b.BookingID] = b
}

func (m *mockBookingRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.bookings)
}

func (m *mockBookingRepo) listCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rangeLists
}

// ── Mock AdHocBlackoutRepository ──

type mockAdHocBlackoutRepo struct {
	mu     sync.Mutex
	blocks map[string]*model.AdHocBlackout
	seq    int
}

func newMockAdHocBlackoutRepo() *mockAdHocBlackoutRepo {
	return &mockAdHocBlackoutRepo{blocks: make(map[string]*model.AdHocBlackout)}
}

func (m *mockAdHocBlackoutRepo) sorted() []*model.AdHocBlackout {
	list := make([]*model.AdHocBlackout, 0, len(m.blocks))
	for _, b := range m.blocks {
		list = append(list, b)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].StartDate.Before(list[j].StartDate) })
	return list
}

func (m *mockAdHocBlackoutRepo) FindCovering(_ context.Context, vesselID string, day time.Time) (*model.AdHocBlackout, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.sorted() {
		if b.VesselID == vesselID && b.Covers(day) {
			cp := *b
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAdHocBlackoutRepo) ListOverlapping(_ context.Context, vesselID string, start, end time.Time) ([]model.AdHocBlackout, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.AdHocBlackout
	for _, b := range m.sorted() {
		if b.VesselID == vesselID && !b.StartDate.After(end) && !b.EndDate.Before(start) {
			result = append(result, *b)
		}
	}
	return result, nil
}

func (m *mockAdHocBlackoutRepo) GetByID(_ context.Context, id string) (*model.AdHocBlackout, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.blocks[id]; ok {
		cp := *b
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAdHocBlackoutRepo) Create(_ context.Context, b *model.AdHocBlackout) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	if b.BlackoutID == "" {
		b.BlackoutID = fmt.Sprintf("bo-%03d", m.seq)
	}
	cp := *b
	m.blocks[b.BlackoutID] = &cp
	return nil
}

func (m *mockAdHocBlackoutRepo) Update(_ context.Context, b *model.AdHocBlackout) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *b
	m.blocks[b.BlackoutID] = &cp
	return nil
}

func (m *mockAdHocBlackoutRepo) Delete(_ context.Context, id string, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blocks, id)
	return nil
}

// ── Mock WeeklyRuleRepository ──
// 与部分唯一索引一致：同一星期几最多一条启用规则

type mockWeeklyRuleRepo struct {
	mu    sync.Mutex
	rules map[string]*model.WeeklyBlackoutRule
	seq   int
}

func newMockWeeklyRuleRepo() *mockWeeklyRuleRepo {
	return &mockWeeklyRuleRepo{rules: make(map[string]*model.WeeklyBlackoutRule)}
}

func (m *mockWeeklyRuleRepo) activeConflict(rule *model.WeeklyBlackoutRule) bool {
	if !rule.IsActive {
		return false
	}
	for id, r := range m.rules {
		if id != rule.RuleID && r.IsActive && r.Weekday == rule.Weekday {
			return true
		}
	}
	return false
}

func (m *mockWeeklyRuleRepo) GetActiveByWeekday(_ context.Context, weekday int) (*model.WeeklyBlackoutRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rules {
		if r.IsActive && r.Weekday == weekday {
			cp := *r
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockWeeklyRuleRepo) ListActive(_ context.Context) ([]model.WeeklyBlackoutRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.WeeklyBlackoutRule
	for _, r := range m.rules {
		if r.IsActive {
			result = append(result, *r)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Weekday < result[j].Weekday })
	return result, nil
}

func (m *mockWeeklyRuleRepo) List(_ context.Context) ([]model.WeeklyBlackoutRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.WeeklyBlackoutRule
	for _, r := range m.rules {
		result = append(result, *r)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Weekday < result[j].Weekday })
	return result, nil
}

func (m *mockWeeklyRuleRepo) GetByID(_ context.Context, id string) (*model.WeeklyBlackoutRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rules[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockWeeklyRuleRepo) Create(_ context.Context, rule *model.WeeklyBlackoutRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.activeConflict(rule) {
		return pkgerrors.ErrDuplicateKey
	}
	m.seq++
	if rule.RuleID == "" {
		rule.RuleID = fmt.Sprintf("wr-%03d", m.seq)
	}
	rule.Version = 1
	cp := *rule
	m.rules[rule.RuleID] = &cp
	return nil
}

func (m *mockWeeklyRuleRepo) Update(_ context.Context, rule *model.WeeklyBlackoutRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.rules[rule.RuleID]
	if !ok || cur.Version != rule.Version {
		return pkgerrors.ErrOptimisticLock
	}
	if m.activeConflict(rule) {
		return pkgerrors.ErrDuplicateKey
	}
	rule.Version++
	cp := *rule
	m.rules[rule.RuleID] = &cp
	return nil
}

func (m *mockWeeklyRuleRepo) Delete(_ context.Context, id string, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rules, id)
	return nil
}

// ── Mock SystemConfigRepository ──

type mockSystemConfigRepo struct {
	mu  sync.Mutex
	row *model.SystemConfig
}

func newMockSystemConfigRepo() *mockSystemConfigRepo {
	return &mockSystemConfigRepo{}
}

func (m *mockSystemConfigRepo) Get(_ context.Context) (*model.SystemConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.row == nil {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *m.row
	return &cp, nil
}

// ── Mock AuditLogRepository ──

type mockAuditLogRepo struct {
	mu      sync.Mutex
	entries []model.AuditLog
	err     error
}

func newMockAuditLogRepo() *mockAuditLogRepo {
	return &mockAuditLogRepo{}
}

func (m *mockAuditLogRepo) Create(_ context.Context, log *model.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, *log)
	return nil
}

func (m *mockAuditLogRepo) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.Action)
	}
	return out
}

// ── Mock Publisher ──

type mockPublisher struct {
	mu       sync.Mutex
	messages []publishedMessage
	err      error
	block    chan struct{}
}

type publishedMessage struct {
	key     string
	payload []byte
	headers map[string]string
}

func (m *mockPublisher) Publish(ctx context.Context, key string, payload []byte, headers map[string]string) error {
	if m.block != nil {
		select {
		case <-m.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.messages = append(m.messages, publishedMessage{key: key, payload: payload, headers: headers})
	return nil
}

func (m *mockPublisher) types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.messages))
	for _, msg := range m.messages {
		out = append(out, msg.headers["event_type"])
	}
	return out
}
