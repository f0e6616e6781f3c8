package device

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/sentra-id/sentra/pkg/errors"
	"github.com/sentra-id/sentra/pkg/session"
)

const (
	chromeUA    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	chromeUAv121 = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"
	iphoneUA    = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
)

type fakeRevoker struct {
	mu   sync.Mutex
	jtis []string
}

func (f *fakeRevoker) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jtis = append(f.jtis, jti)
	return nil
}

func TestFingerprint_StableAcrossVersions(t *testing.T) {
	assert.Equal(t, Fingerprint(chromeUA, ""), Fingerprint(chromeUAv121, ""),
		"browser updates must not change the fingerprint")
	assert.NotEqual(t, Fingerprint(chromeUA, ""), Fingerprint(iphoneUA, ""))
}

func TestFingerprint_IPSalt(t *testing.T) {
	assert.NotEqual(t, Fingerprint(chromeUA, "10.0.0.1"), Fingerprint(chromeUA, "10.0.0.2"))
	assert.Equal(t, Fingerprint(chromeUA, "10.0.0.1"), Fingerprint(chromeUA, "10.0.0.1"))
}

func TestParseUserAgent(t *testing.T) {
	os, browser, deviceType := ParseUserAgent(chromeUA)
	assert.Equal(t, "Windows", os)
	assert.Equal(t, "Chrome", browser)
	assert.Equal(t, "Desktop", deviceType)

	os, browser, deviceType = ParseUserAgent(iphoneUA)
	assert.Equal(t, "iOS", os)
	assert.Equal(t, "Safari", browser)
	assert.Equal(t, "Mobile", deviceType)

	os, browser, deviceType = ParseUserAgent("curl/8.4.0")
	assert.Equal(t, "Unknown", os)
	assert.Equal(t, "Unknown", browser)
	assert.Equal(t, "Desktop", deviceType)
}

func newTestTracker() (*Tracker, *session.InMemoryRepository, *fakeRevoker) {
	sessions := session.NewInMemoryRepository()
	revoker := &fakeRevoker{}
	return NewTracker(NewInMemoryRepository(), sessions, revoker), sessions, revoker
}

func TestTracker_UpsertSameFingerprint(t *testing.T) {
	tracker, _, _ := newTestTracker()
	ctx := context.Background()
	userID := uuid.New()

	first, err := tracker.CreateOrUpdateDevice(ctx, userID, Info{UserAgent: chromeUA})
	require.NoError(t, err)
	assert.Equal(t, "Chrome", first.Browser)

	// Same browser after an update resolves to the same device row
	second, err := tracker.CreateOrUpdateDevice(ctx, userID, Info{UserAgent: chromeUAv121, Name: "work laptop"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "work laptop", second.Name)
}

func TestTracker_SameBrowserDifferentUsers(t *testing.T) {
	tracker, _, _ := newTestTracker()
	ctx := context.Background()

	alice, err := tracker.CreateOrUpdateDevice(ctx, uuid.New(), Info{UserAgent: chromeUA})
	require.NoError(t, err)
	bob, err := tracker.CreateOrUpdateDevice(ctx, uuid.New(), Info{UserAgent: chromeUA})
	require.NoError(t, err)

	assert.Equal(t, alice.Fingerprint, bob.Fingerprint)
	assert.NotEqual(t, alice.ID, bob.ID)
}

func TestTracker_GetUserDevicesFiltersDeadSessions(t *testing.T) {
	tracker, sessions, _ := newTestTracker()
	ctx := context.Background()
	userID := uuid.New()

	withSession, err := tracker.CreateOrUpdateDevice(ctx, userID, Info{UserAgent: chromeUA})
	require.NoError(t, err)
	_, err = tracker.CreateOrUpdateDevice(ctx, userID, Info{UserAgent: iphoneUA})
	require.NoError(t, err)

	_, err = sessions.CreateRecord(ctx, session.CreateRecordParams{
		TokenHash: "h1",
		UserID:    userID,
		DeviceID:  &withSession.ID,
		ExpiresAt: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	devices, err := tracker.GetUserDevices(ctx, userID)
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, withSession.ID, devices[0].ID)
}

func TestTracker_RevokeDevice(t *testing.T) {
	tracker, sessions, revoker := newTestTracker()
	ctx := context.Background()
	userID := uuid.New()

	dev, err := tracker.CreateOrUpdateDevice(ctx, userID, Info{UserAgent: chromeUA})
	require.NoError(t, err)

	rec, err := sessions.CreateRecord(ctx, session.CreateRecordParams{
		TokenHash: "h1",
		JTI:       "jti-1",
		UserID:    userID,
		DeviceID:  &dev.ID,
		ExpiresAt: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	require.NoError(t, tracker.RevokeDevice(ctx, userID, dev.ID))

	assert.Equal(t, []string{"jti-1"}, revoker.jtis)
	got, err := sessions.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.True(t, got.Revoked)

	devices, err := tracker.GetUserDevices(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, devices)
}

func TestTracker_RevokeDeviceOwnership(t *testing.T) {
	tracker, _, _ := newTestTracker()
	ctx := context.Background()

	dev, err := tracker.CreateOrUpdateDevice(ctx, uuid.New(), Info{UserAgent: chromeUA})
	require.NoError(t, err)

	// Another user cannot see or revoke the device
	err = tracker.RevokeDevice(ctx, uuid.New(), dev.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotFound))
}

func TestTracker_RevokeDeviceSkipsExpiredTokens(t *testing.T) {
	tracker, sessions, revoker := newTestTracker()
	ctx := context.Background()
	userID := uuid.New()

	dev, err := tracker.CreateOrUpdateDevice(ctx, userID, Info{UserAgent: chromeUA})
	require.NoError(t, err)

	_, err = sessions.CreateRecord(ctx, session.CreateRecordParams{
		TokenHash: "h1",
		JTI:       "expired-jti",
		UserID:    userID,
		DeviceID:  &dev.ID,
		ExpiresAt: time.Now().Add(-time.Minute),
	})
	require.NoError(t, err)

	require.NoError(t, tracker.RevokeDevice(ctx, userID, dev.ID))
	assert.Empty(t, revoker.jtis, "expired tokens need no blacklist entry")
}
