package main

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// ChangesQueue is the default list carrying the books changes in publish order.
const ChangesQueue = "books.changes"

// ChangeOp names the kind of write a Change replays.
type ChangeOp string

const (
	OpCreate ChangeOp = "create"
	OpUpdate ChangeOp = "update"
	OpDelete ChangeOp = "delete"
	OpPurge  ChangeOp = "purge"
)

// Change is the envelope pushed on the queue for each successful write.
type Change struct {
	Op   ChangeOp `json:"op"`
	Book Book     `json:"book"`
}

// Ensure *redisQueue implements Queuer.
var _ Queuer = (*redisQueue)(nil)

// Queuer describes a FIFO queue of books changes.
type Queuer interface {
	Push(ctx context.Context, change Change) error
	Pop(ctx context.Context) (Change, error)
}

// redisQueue is a single redis list. All changes share it so
// the consumer sees them in the exact order they were pushed.
type redisQueue struct {
	client *redis.Client
	qid    string
}

func NewRedisQueue(client *redis.Client, qid string) Queuer {
	if qid == "" {
		qid = ChangesQueue
	}
	return &redisQueue{client: client, qid: qid}
}

// Push appends a change at the tail of the list.
func (q *redisQueue) Push(ctx context.Context, change Change) error {
	data, err := json.Marshal(change)
	if err != nil {
		return err
	}
	return q.client.RPush(ctx, q.qid, data).Err()
}

// Pop blocks until a change is available at the head of the list then returns it.
func (q *redisQueue) Pop(ctx context.Context) (Change, error) {
	var change Change
	infos, err := q.client.BLPop(ctx, 0*time.Second, q.qid).Result()
	if err != nil {
		return change, err
	}
	err = json.Unmarshal([]byte(infos[1]), &change)
	return change, err
}
