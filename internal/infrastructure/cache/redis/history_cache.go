package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"payment-fraud-risk/internal/domain/risk"
)

// Retention windows for the recorded history keys
const (
	velocityRetention = 24 * time.Hour
	deviceRetention   = 30 * 24 * time.Hour
	locationRetention = 90 * 24 * time.Hour
	ipRetention       = 30 * 24 * time.Hour
)

// VelocityCache tracks recent payments per user for fast velocity counting.
// Payments are kept in a sorted set keyed by timestamp so window counts are a
// single ZCOUNT.
type VelocityCache struct {
	client *Client
}

var _ risk.VelocityReader = (*VelocityCache)(nil)

// NewVelocityCache creates a new velocity cache
func NewVelocityCache(client *Client) *VelocityCache {
	return &VelocityCache{client: client}
}

func velocityKey(userID uuid.UUID) string {
	return fmt.Sprintf("velocity:user:%s", userID.String())
}

// RecordPayment records a payment for velocity tracking
func (c *VelocityCache) RecordPayment(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, at time.Time) error {
	key := velocityKey(userID)

	member := redis.Z{
		Score:  float64(at.Unix()),
		Member: fmt.Sprintf("%d|%s", at.UnixNano(), amount.String()),
	}
	if err := c.client.rdb.ZAdd(ctx, key, member).Err(); err != nil {
		return fmt.Errorf("failed to record payment: %w", err)
	}

	if err := c.client.rdb.Expire(ctx, key, velocityRetention).Err(); err != nil {
		return fmt.Errorf("failed to set expiration: %w", err)
	}

	// Trim entries older than the retention window, best effort
	cutoff := time.Now().Add(-velocityRetention).Unix()
	c.client.rdb.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(cutoff, 10))

	return nil
}

// CountRecentPayments returns the number of payments in a trailing window
func (c *VelocityCache) CountRecentPayments(ctx context.Context, userID uuid.UUID, window time.Duration) (int64, error) {
	key := velocityKey(userID)

	minTime := time.Now().Add(-window).Unix()
	count, err := c.client.rdb.ZCount(ctx, key,
		strconv.FormatInt(minTime, 10), "+inf").Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count recent payments: %w", err)
	}
	return count, nil
}

// DeviceCache tracks device fingerprints seen per user. Fingerprints live in
// a sorted set scored by last sighting so reads can honor a trailing window.
type DeviceCache struct {
	client *Client
}

// NewDeviceCache creates a new device cache
func NewDeviceCache(client *Client) *DeviceCache {
	return &DeviceCache{client: client}
}

func deviceKey(userID uuid.UUID) string {
	return fmt.Sprintf("devices:user:%s", userID.String())
}

// RecordDevice records a device fingerprint for a user
func (c *DeviceCache) RecordDevice(ctx context.Context, userID uuid.UUID, deviceInfo string) error {
	key := deviceKey(userID)

	member := redis.Z{
		Score:  float64(time.Now().Unix()),
		Member: deviceInfo,
	}
	if err := c.client.rdb.ZAdd(ctx, key, member).Err(); err != nil {
		return fmt.Errorf("failed to record device: %w", err)
	}
	return c.client.rdb.Expire(ctx, key, deviceRetention).Err()
}

// IsKnownDevice checks whether the device was seen for the user within the
// trailing window
func (c *DeviceCache) IsKnownDevice(ctx context.Context, userID uuid.UUID, deviceInfo string, window time.Duration) (bool, error) {
	lastSeen, err := c.client.rdb.ZScore(ctx, deviceKey(userID), deviceInfo).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check device: %w", err)
	}
	return lastSeen >= float64(time.Now().Add(-window).Unix()), nil
}

// LocationCache tracks locations seen per user in a sorted set scored by
// last sighting
type LocationCache struct {
	client *Client
}

// NewLocationCache creates a new location cache
func NewLocationCache(client *Client) *LocationCache {
	return &LocationCache{client: client}
}

func locationKey(userID uuid.UUID) string {
	return fmt.Sprintf("locations:user:%s", userID.String())
}

// RecordLocation records a location for a user
func (c *LocationCache) RecordLocation(ctx context.Context, userID uuid.UUID, location string) error {
	key := locationKey(userID)

	member := redis.Z{
		Score:  float64(time.Now().Unix()),
		Member: location,
	}
	if err := c.client.rdb.ZAdd(ctx, key, member).Err(); err != nil {
		return fmt.Errorf("failed to record location: %w", err)
	}
	return c.client.rdb.Expire(ctx, key, locationRetention).Err()
}

// IsKnownLocation checks whether the location is among the user's most
// recently seen locations, capped at limit
func (c *LocationCache) IsKnownLocation(ctx context.Context, userID uuid.UUID, location string, limit int) (bool, error) {
	recent, err := c.client.rdb.ZRevRange(ctx, locationKey(userID), 0, int64(limit)-1).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check location: %w", err)
	}
	for _, seen := range recent {
		if seen == location {
			return true, nil
		}
	}
	return false, nil
}

// IPCache tracks IP addresses seen per user
type IPCache struct {
	client *Client
}

// NewIPCache creates a new IP cache
func NewIPCache(client *Client) *IPCache {
	return &IPCache{client: client}
}

func ipKey(userID uuid.UUID) string {
	return fmt.Sprintf("ips:user:%s", userID.String())
}

// RecordIP records an IP address for a user
func (c *IPCache) RecordIP(ctx context.Context, userID uuid.UUID, ip string) error {
	key := ipKey(userID)

	member := redis.Z{
		Score:  float64(time.Now().Unix()),
		Member: ip,
	}
	if err := c.client.rdb.ZAdd(ctx, key, member).Err(); err != nil {
		return fmt.Errorf("failed to record ip: %w", err)
	}
	return c.client.rdb.Expire(ctx, key, ipRetention).Err()
}

// ListRecentIPs returns the most recently seen IPs for a user, capped at limit
func (c *IPCache) ListRecentIPs(ctx context.Context, userID uuid.UUID, limit int) ([]string, error) {
	ips, err := c.client.rdb.ZRevRange(ctx, ipKey(userID), 0, int64(limit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list recent ips: %w", err)
	}
	return ips, nil
}

// HistoryRecorder bundles the per-signal caches behind the recording surface
// the analysis use case expects, and exposes their read paths as the scorer's
// cache fast path.
type HistoryRecorder struct {
	velocity  *VelocityCache
	devices   *DeviceCache
	locations *LocationCache
	ips       *IPCache
}

var _ risk.ContextReader = (*HistoryRecorder)(nil)

// NewHistoryRecorder creates a recorder over all four caches
func NewHistoryRecorder(client *Client) *HistoryRecorder {
	return &HistoryRecorder{
		velocity:  NewVelocityCache(client),
		devices:   NewDeviceCache(client),
		locations: NewLocationCache(client),
		ips:       NewIPCache(client),
	}
}

// RecordPayment records a payment for velocity tracking
func (r *HistoryRecorder) RecordPayment(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, at time.Time) error {
	return r.velocity.RecordPayment(ctx, userID, amount, at)
}

// RecordDevice records a device fingerprint
func (r *HistoryRecorder) RecordDevice(ctx context.Context, userID uuid.UUID, deviceInfo string) error {
	return r.devices.RecordDevice(ctx, userID, deviceInfo)
}

// RecordLocation records a location
func (r *HistoryRecorder) RecordLocation(ctx context.Context, userID uuid.UUID, location string) error {
	return r.locations.RecordLocation(ctx, userID, location)
}

// RecordIP records an IP address
func (r *HistoryRecorder) RecordIP(ctx context.Context, userID uuid.UUID, ip string) error {
	return r.ips.RecordIP(ctx, userID, ip)
}

// IsKnownDevice reports whether the device was seen within the window
func (r *HistoryRecorder) IsKnownDevice(ctx context.Context, userID uuid.UUID, deviceInfo string, window time.Duration) (bool, error) {
	return r.devices.IsKnownDevice(ctx, userID, deviceInfo, window)
}

// IsKnownLocation reports whether the location is among the user's most
// recently seen locations
func (r *HistoryRecorder) IsKnownLocation(ctx context.Context, userID uuid.UUID, location string, limit int) (bool, error) {
	return r.locations.IsKnownLocation(ctx, userID, location, limit)
}

// ListRecentIPs returns the user's most recently seen IPs, newest first
func (r *HistoryRecorder) ListRecentIPs(ctx context.Context, userID uuid.UUID, limit int) ([]string, error) {
	return r.ips.ListRecentIPs(ctx, userID, limit)
}

// Velocity exposes the velocity cache for use as the scorer's fast path
func (r *HistoryRecorder) Velocity() *VelocityCache {
	return r.velocity
}
