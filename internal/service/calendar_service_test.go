package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"nautica/backend/internal/dto"
	"nautica/backend/internal/model"
	"nautica/backend/pkg/cache"
)

func TestCalendarKey(t *testing.T) {
	got := CalendarKey("v-1", date(2025, 11, 1), date(2025, 11, 30))
	if got != "calendar:v-1:2025-11-01:2025-11-30" {
		t.Errorf("缓存键不符: %s", got)
	}
}

func TestGetCalendar_Aggregates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.booking.Admit(ctx, env.admitReq("v-1", date(2025, 11, 4)), "u-1", model.RoleMember); err != nil {
		t.Fatalf("Admit 应成功: %v", err)
	}
	if _, err := env.blackout.CreateAdHoc(ctx, "v-1", &dto.CreateAdHocBlackoutRequest{
		StartDate: "2025-11-10", EndDate: "2025-11-12", Reason: "上坞",
	}, "admin-1", model.RoleAdmin); err != nil {
		t.Fatalf("CreateAdHoc 应成功: %v", err)
	}
	if _, err := env.blackout.CreateWeeklyRule(ctx, &dto.CreateWeeklyRuleRequest{Weekday: intPtr(0), Reason: "检修"}, "admin-1", model.RoleAdmin); err != nil {
		t.Fatalf("CreateWeeklyRule 应成功: %v", err)
	}

	cal, err := env.calendar.GetCalendar(ctx, "v-1", date(2025, 11, 1), date(2025, 11, 30))
	if err != nil {
		t.Fatalf("GetCalendar 应成功: %v", err)
	}
	if cal.Start != "2025-11-01" || cal.End != "2025-11-30" {
		t.Errorf("范围不符: %s ~ %s", cal.Start, cal.End)
	}
	if len(cal.Bookings) != 1 || len(cal.AdHocBlocks) != 1 || len(cal.WeeklyRules) != 1 {
		t.Errorf("期望 1/1/1，实际 %d/%d/%d", len(cal.Bookings), len(cal.AdHocBlocks), len(cal.WeeklyRules))
	}
}

func TestGetCalendar_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.calendar.GetCalendar(ctx, "v-1", date(2025, 11, 30), date(2025, 11, 1)); !errors.Is(err, ErrInvalidDateRange) {
		t.Errorf("期望 ErrInvalidDateRange，实际: %v", err)
	}
	if _, err := env.calendar.GetCalendar(ctx, "v-1", date(2025, 1, 1), date(2026, 1, 3)); !errors.Is(err, ErrDateRangeTooLarge) {
		t.Errorf("期望 ErrDateRangeTooLarge，实际: %v", err)
	}
	if _, err := env.calendar.GetCalendar(ctx, "v-x", date(2025, 11, 1), date(2025, 11, 30)); !errors.Is(err, ErrVesselNotFound) {
		t.Errorf("期望 ErrVesselNotFound，实际: %v", err)
	}
}

// TTL 内即使存储变化也返回同一结果；过期后反映最新数据
func TestGetCalendar_StableWithinTTL(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	start, end := date(2025, 11, 1), date(2025, 11, 30)

	first, err := env.calendar.GetCalendar(ctx, "v-1", start, end)
	if err != nil {
		t.Fatalf("GetCalendar 应成功: %v", err)
	}
	if len(first.Bookings) != 0 {
		t.Fatalf("期望空日历，实际=%d", len(first.Bookings))
	}

	// 绕过服务直接写存储，不触发失效
	env.bookings.seed(&model.Booking{BookingID: "bk-s", UserID: "u-1", VesselID: "v-1", BookingDate: date(2025, 11, 7), Status: model.BookingApproved})

	env.clock.Advance(calendarTTL - time.Second)
	cached, err := env.calendar.GetCalendar(ctx, "v-1", start, end)
	if err != nil {
		t.Fatalf("GetCalendar 应成功: %v", err)
	}
	if len(cached.Bookings) != 0 {
		t.Errorf("TTL 内应返回缓存结果，实际=%d 条预约", len(cached.Bookings))
	}
	if env.bookings.listCalls() != 1 {
		t.Errorf("期望只回源 1 次，实际=%d", env.bookings.listCalls())
	}

	env.clock.Advance(2 * time.Second)
	fresh, err := env.calendar.GetCalendar(ctx, "v-1", start, end)
	if err != nil {
		t.Fatalf("GetCalendar 应成功: %v", err)
	}
	if len(fresh.Bookings) != 1 {
		t.Errorf("过期后应反映最新数据，实际=%d 条预约", len(fresh.Bookings))
	}
}

func TestGetCalendar_InvalidatedByBookingMutation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// 同一船只的两个不同范围都应被失效
	ranges := [][2]time.Time{
		{date(2025, 11, 1), date(2025, 11, 30)},
		{date(2025, 11, 3), date(2025, 11, 9)},
	}
	for _, r := range ranges {
		if _, err := env.calendar.GetCalendar(ctx, "v-1", r[0], r[1]); err != nil {
			t.Fatalf("GetCalendar 应成功: %v", err)
		}
	}
	other, _ := env.calendar.GetCalendar(ctx, "v-2", date(2025, 11, 1), date(2025, 11, 30))

	b, err := env.booking.Admit(ctx, env.admitReq("v-1", date(2025, 11, 4)), "u-1", model.RoleMember)
	if err != nil {
		t.Fatalf("Admit 应成功: %v", err)
	}

	for _, r := range ranges {
		cal, err := env.calendar.GetCalendar(ctx, "v-1", r[0], r[1])
		if err != nil {
			t.Fatalf("GetCalendar 应成功: %v", err)
		}
		if len(cal.Bookings) != 1 {
			t.Errorf("%s 失效后应看到新预约，实际=%d", CalendarKey("v-1", r[0], r[1]), len(cal.Bookings))
		}
	}

	// 其他船只的缓存不受影响
	if _, ok, _ := env.store.Get(ctx, CalendarKey("v-2", date(2025, 11, 1), date(2025, 11, 30))); !ok || other == nil {
		t.Error("v-2 的缓存不应被失效")
	}

	if _, err := env.booking.Cancel(ctx, b.ID, "u-1", model.RoleMember, ""); err != nil {
		t.Fatalf("Cancel 应成功: %v", err)
	}
	cal, _ := env.calendar.GetCalendar(ctx, "v-1", ranges[0][0], ranges[0][1])
	if len(cal.Bookings) != 1 || cal.Bookings[0].Status != model.BookingCancelled {
		t.Errorf("取消后日历应显示已取消状态，实际=%+v", cal.Bookings)
	}
}

func TestGetCalendar_InvalidatedByBlackoutMutation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	start, end := date(2025, 11, 1), date(2025, 11, 30)

	_, _ = env.calendar.GetCalendar(ctx, "v-1", start, end)
	_, _ = env.calendar.GetCalendar(ctx, "v-2", start, end)

	if _, err := env.blackout.CreateAdHoc(ctx, "v-1", &dto.CreateAdHocBlackoutRequest{
		StartDate: "2025-11-05", EndDate: "2025-11-05", Reason: "上坞",
	}, "admin-1", model.RoleAdmin); err != nil {
		t.Fatalf("CreateAdHoc 应成功: %v", err)
	}
	cal, _ := env.calendar.GetCalendar(ctx, "v-1", start, end)
	if len(cal.AdHocBlocks) != 1 {
		t.Errorf("临时禁约变更后应立即可见，实际=%d", len(cal.AdHocBlocks))
	}

	// 每周规则是全局的，所有船只的缓存都要失效
	if _, err := env.blackout.CreateWeeklyRule(ctx, &dto.CreateWeeklyRuleRequest{Weekday: intPtr(6), Reason: "周六赛事"}, "admin-1", model.RoleAdmin); err != nil {
		t.Fatalf("CreateWeeklyRule 应成功: %v", err)
	}
	for _, v := range []string{"v-1", "v-2"} {
		cal, _ := env.calendar.GetCalendar(ctx, v, start, end)
		if len(cal.WeeklyRules) != 1 {
			t.Errorf("%s 每周规则变更后应立即可见，实际=%d", v, len(cal.WeeklyRules))
		}
	}
}

// ── CalendarCache ──

func newTestCalendarCache() (*CalendarCache, *cache.Memory, *testClock) {
	clock := &testClock{now: baseNow}
	store := cache.NewMemory(cache.WithClock(clock.Now))
	return NewCalendarCache(store, calendarTTL, zap.NewNop()), store, clock
}

// 回源期间发生失效时，回源结果不能写回缓存
func TestCalendarCache_LoadRacingInvalidation(t *testing.T) {
	c, store, _ := newTestCalendarCache()
	ctx := context.Background()
	start, end := date(2025, 11, 1), date(2025, 11, 30)

	loads := 0
	staleLoader := func(ctx context.Context) (*dto.CalendarResponse, error) {
		loads++
		c.Invalidate(ctx, "v-1")
		return &dto.CalendarResponse{VesselID: "v-1"}, nil
	}

	if _, err := c.GetOrLoad(ctx, "v-1", start, end, staleLoader); err != nil {
		t.Fatalf("GetOrLoad 应成功: %v", err)
	}
	if _, ok, _ := store.Get(ctx, CalendarKey("v-1", start, end)); ok {
		t.Error("与失效并发的回源结果不应写入缓存")
	}

	globalLoader := func(ctx context.Context) (*dto.CalendarResponse, error) {
		loads++
		c.InvalidateAll(ctx)
		return &dto.CalendarResponse{VesselID: "v-1"}, nil
	}
	if _, err := c.GetOrLoad(ctx, "v-1", start, end, globalLoader); err != nil {
		t.Fatalf("GetOrLoad 应成功: %v", err)
	}
	if _, ok, _ := store.Get(ctx, CalendarKey("v-1", start, end)); ok {
		t.Error("与全量失效并发的回源结果不应写入缓存")
	}
	if loads != 2 {
		t.Errorf("期望回源 2 次，实际=%d", loads)
	}
}

func TestCalendarCache_LoaderErrorNotCached(t *testing.T) {
	c, _, _ := newTestCalendarCache()
	ctx := context.Background()
	boom := errors.New("db down")

	_, err := c.GetOrLoad(ctx, "v-1", date(2025, 11, 1), date(2025, 11, 2), func(context.Context) (*dto.CalendarResponse, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("期望回源错误透传，实际: %v", err)
	}

	got, err := c.GetOrLoad(ctx, "v-1", date(2025, 11, 1), date(2025, 11, 2), func(context.Context) (*dto.CalendarResponse, error) {
		return &dto.CalendarResponse{VesselID: "v-1"}, nil
	})
	if err != nil || got.VesselID != "v-1" {
		t.Errorf("错误不应被缓存，实际 got=%v err=%v", got, err)
	}
}

func TestCalendarCache_CorruptEntryDropped(t *testing.T) {
	c, store, _ := newTestCalendarCache()
	ctx := context.Background()
	key := CalendarKey("v-1", date(2025, 11, 1), date(2025, 11, 2))
	_ = store.Set(ctx, key, []byte("{not json"), time.Minute)

	got, err := c.GetOrLoad(ctx, "v-1", date(2025, 11, 1), date(2025, 11, 2), func(context.Context) (*dto.CalendarResponse, error) {
		return &dto.CalendarResponse{VesselID: "v-1", Start: "2025-11-01"}, nil
	})
	if err != nil || got.Start != "2025-11-01" {
		t.Errorf("损坏的缓存应回源，实际 got=%v err=%v", got, err)
	}
}

// 失效之后发起的读取不能复用失效之前开始的回源结果
func TestCalendarCache_ReadAfterInvalidationSkipsInFlightLoad(t *testing.T) {
	c, store, _ := newTestCalendarCache()
	ctx := context.Background()
	start, end := date(2025, 11, 1), date(2025, 11, 30)

	started := make(chan struct{})
	release := make(chan struct{})
	staleDone := make(chan *dto.CalendarResponse, 1)
	go func() {
		resp, _ := c.GetOrLoad(ctx, "v-1", start, end, func(context.Context) (*dto.CalendarResponse, error) {
			close(started)
			<-release
			return &dto.CalendarResponse{VesselID: "v-1"}, nil
		})
		staleDone <- resp
	}()
	<-started

	c.Invalidate(ctx, "v-1")

	fresh, err := c.GetOrLoad(ctx, "v-1", start, end, func(context.Context) (*dto.CalendarResponse, error) {
		return &dto.CalendarResponse{VesselID: "v-1", Bookings: []dto.BookingResponse{{ID: "bk-1"}}}, nil
	})
	if err != nil {
		t.Fatalf("GetOrLoad 应成功: %v", err)
	}
	if len(fresh.Bookings) != 1 {
		t.Errorf("失效后的读取应反映最新数据，实际=%d 条预约", len(fresh.Bookings))
	}

	close(release)
	if stale := <-staleDone; stale == nil || len(stale.Bookings) != 0 {
		t.Errorf("失效前开始的回源应返回自己的结果，实际=%+v", stale)
	}

	raw, ok, _ := store.Get(ctx, CalendarKey("v-1", start, end))
	if !ok {
		t.Fatal("失效后的回源结果应写入缓存")
	}
	var cached dto.CalendarResponse
	if err := json.Unmarshal(raw, &cached); err != nil || len(cached.Bookings) != 1 {
		t.Errorf("旧回源结果不应覆盖缓存，实际=%s err=%v", raw, err)
	}
}

// 发起者的请求被取消时，共享回源仍然完成
func TestCalendarCache_LoaderIgnoresCallerCancel(t *testing.T) {
	c, _, _ := newTestCalendarCache()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, err := c.GetOrLoad(ctx, "v-1", date(2025, 11, 1), date(2025, 11, 2), func(loadCtx context.Context) (*dto.CalendarResponse, error) {
		if err := loadCtx.Err(); err != nil {
			return nil, err
		}
		return &dto.CalendarResponse{VesselID: "v-1"}, nil
	})
	if err != nil || got.VesselID != "v-1" {
		t.Errorf("回源不应因发起者取消而失败，实际 got=%v err=%v", got, err)
	}
}
