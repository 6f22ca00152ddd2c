package app_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/court-scheduler/internal/app"
	"github.com/nekogravitycat/court-scheduler/internal/auth"
	"github.com/nekogravitycat/court-scheduler/internal/db"
	"github.com/nekogravitycat/court-scheduler/internal/pkg/clock"
)

const testCredentialsKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

// env runs against the database named by TEST_DB_DSN and is skipped without it.
type env struct {
	router  *gin.Engine
	pool    *pgxpool.Pool
	admin   string
	manager string
	player  string
}

func setupEnv(t *testing.T) *env {
	t.Helper()
	_ = godotenv.Load("../../.env")

	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN is not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, db.Migrate(pool))

	for _, q := range []string{
		"TRUNCATE TABLE public.ledger_transactions CASCADE",
		"TRUNCATE TABLE public.facilities CASCADE",
	} {
		_, err := pool.Exec(ctx, q)
		require.NoError(t, err)
	}

	gin.SetMode(gin.TestMode)
	container, err := app.NewContainer(app.Config{
		DBPool:         pool,
		JWTSecret:      "integration-secret",
		JWTTTL:         30 * time.Minute,
		CredentialsKey: testCredentialsKey,
		PendingGrace:   15 * time.Minute,
		Clock:          clock.Fixed(time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)),
	})
	require.NoError(t, err)

	token := func(id string, role auth.Role) string {
		tok, err := container.JWTManager.GenerateAccessToken(id, role)
		require.NoError(t, err)
		return tok
	}

	return &env{
		router:  container.Router,
		pool:    pool,
		admin:   token("admin-1", auth.RoleAdmin),
		manager: token("manager-1", auth.RoleManager),
		player:  token("player-1", auth.RolePlayer),
	}
}

func (e *env) do(method, path string, body any, token string) *httptest.ResponseRecorder {
	var reqBody []byte
	if body != nil {
		reqBody, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewBuffer(reqBody))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

// seedCourt creates a UTC facility managed by manager-1 with one 60 minute court.
func (e *env) seedCourt(t *testing.T) (facilityID, courtID string) {
	t.Helper()
	w := e.do(http.MethodPost, "/v1/facilities", map[string]any{
		"name":       "Riverside",
		"manager_id": "manager-1",
		"timezone":   "UTC",
	}, e.admin)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	facilityID = decode(t, w)["id"].(string)

	w = e.do(http.MethodPost, "/v1/courts", map[string]any{
		"facility_id":           facilityID,
		"name":                  "Court 1",
		"slot_duration_minutes": 60,
	}, e.manager)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	courtID = decode(t, w)["id"].(string)
	return facilityID, courtID
}

func cashBooking(courtID string, hour int) map[string]any {
	return map[string]any{
		"court_id":    courtID,
		"date":        "2026-03-02",
		"start_hour":  hour,
		"total_price": 40000,
		"deposit":     10000,
		"guest_name":  "Walk-in",
	}
}

func TestBookingLifecycleAgainstPostgres(t *testing.T) {
	e := setupEnv(t)
	facilityID, courtID := e.seedCourt(t)

	w := e.do(http.MethodPost, "/v1/bookings", cashBooking(courtID, 10), e.manager)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode(t, w)
	assert.Equal(t, "10:00", created["start_time"])
	assert.Equal(t, "11:00", created["end_time"])
	assert.EqualValues(t, 30000, created["remaining_balance"])

	// Same slot again.
	w = e.do(http.MethodPost, "/v1/bookings", cashBooking(courtID, 10), e.manager)
	assert.Equal(t, http.StatusConflict, w.Code, w.Body.String())

	// A block touching the booking is fine, one overlapping it is not.
	w = e.do(http.MethodPost, "/v1/blocks", map[string]any{
		"court_id": courtID, "date": "2026-03-02", "start_time": "11:00", "end_time": "12:00", "reason": "coaching",
	}, e.manager)
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = e.do(http.MethodPost, "/v1/blocks", map[string]any{
		"court_id": courtID, "date": "2026-03-02", "start_time": "10:30", "end_time": "11:00", "reason": "maintenance",
	}, e.manager)
	assert.Equal(t, http.StatusConflict, w.Code, w.Body.String())

	w = e.do(http.MethodGet, "/v1/availability?court_id="+courtID+"&date=2026-03-02", nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var avail struct {
		FacilityID string `json:"facility_id"`
		Slots      []struct {
			StartTime string `json:"start_time"`
			Courts    []struct {
				Available bool `json:"available"`
			} `json:"courts"`
		} `json:"slots"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &avail))
	assert.Equal(t, facilityID, avail.FacilityID)
	free := map[string]bool{}
	for _, s := range avail.Slots {
		free[s.StartTime] = s.Courts[0].Available
	}
	assert.True(t, free["09:00"])
	assert.False(t, free["10:00"])
	assert.False(t, free["11:00"])
	assert.True(t, free["12:00"])

	// Cancelling frees the slot.
	w = e.do(http.MethodPost, "/v1/bookings/"+created["id"].(string)+"/cancel", nil, e.manager)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "CANCELLED", decode(t, w)["status"])

	w = e.do(http.MethodPost, "/v1/bookings", cashBooking(courtID, 10), e.manager)
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestConcurrentBookingsForOneSlot(t *testing.T) {
	e := setupEnv(t)
	_, courtID := e.seedCourt(t)

	const attempts = 8
	codes := make([]int, attempts)
	var wg sync.WaitGroup
	for i := range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			codes[i] = e.do(http.MethodPost, "/v1/bookings", cashBooking(courtID, 14), e.manager).Code
		}()
	}
	wg.Wait()

	created := 0
	for _, code := range codes {
		switch code {
		case http.StatusCreated:
			created++
		case http.StatusConflict:
		default:
			t.Fatalf("unexpected status %d", code)
		}
	}
	assert.Equal(t, 1, created)

	var live int
	err := e.pool.QueryRow(context.Background(),
		"SELECT count(*) FROM public.bookings WHERE court_id = $1 AND status <> 'CANCELLED'", courtID).Scan(&live)
	require.NoError(t, err)
	assert.Equal(t, 1, live)
}

func TestPlayerCannotBookCash(t *testing.T) {
	e := setupEnv(t)
	_, courtID := e.seedCourt(t)

	w := e.do(http.MethodPost, "/v1/bookings", cashBooking(courtID, 10), e.player)
	assert.Equal(t, http.StatusForbidden, w.Code, w.Body.String())
}
