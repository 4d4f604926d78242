package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// PinDirectory keeps the quiz→PIN reuse map and per-PIN liveness markers in
// Redis so that a restarted process hands a quiz its old PIN again and no two
// processes draw the same fresh PIN:
//
//	SET quiz:{quizID}:pin {pin}
//	SET game:{pin}:live 1 EX ttl
//
// The live marker is refreshed at every question, so it outlasts ttl only while
// the game is being played. All writes are best-effort.
type PinDirectory struct {
	client *redis.Client
	ttl    time.Duration
}

func NewPinDirectory(client *redis.Client, ttl time.Duration) *PinDirectory {
	return &PinDirectory{client: client, ttl: ttl}
}

func (d *PinDirectory) Lookup(ctx context.Context, quizID string) (string, bool) {
	pin, err := d.client.Get(ctx, d.quizKey(quizID)).Result()
	if err != nil || pin == "" {
		return "", false
	}
	return pin, true
}

func (d *PinDirectory) Assign(ctx context.Context, quizID, pin string) {
	_ = d.client.Set(ctx, d.quizKey(quizID), pin, 0).Err()
}

func (d *PinDirectory) MarkLive(ctx context.Context, pin string) {
	_ = d.client.Set(ctx, d.liveKey(pin), "1", d.ttl).Err()
}

func (d *PinDirectory) Release(ctx context.Context, pin string) {
	_ = d.client.Del(ctx, d.liveKey(pin)).Err()
}

// IsLive reports whether some process currently advertises pin. A Redis
// error reads as not live.
func (d *PinDirectory) IsLive(ctx context.Context, pin string) bool {
	n, err := d.client.Exists(ctx, d.liveKey(pin)).Result()
	return err == nil && n > 0
}

func (d *PinDirectory) quizKey(quizID string) string {
	return "quiz:" + quizID + ":pin"
}

func (d *PinDirectory) liveKey(pin string) string {
	return "game:" + pin + ":live"
}
