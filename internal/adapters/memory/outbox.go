package memory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/playnatela/volante-express/internal/domain"
	"github.com/playnatela/volante-express/internal/ports"
)

type outboxRow struct {
	ports.OutboxRecord
	claimToken string
	claimUntil time.Time
}

type outboxRepository struct{ base }

func (r *outboxRepository) Enqueue(_ context.Context, event ports.OutboxEvent) error {
	return r.with(func(st *state) error {
		st.outbox = append(st.outbox, outboxRow{OutboxRecord: ports.OutboxRecord{
			OutboxID:     event.EventID,
			EventType:    event.EventType,
			PartitionKey: event.PartitionKey,
			Payload:      append([]byte(nil), event.Payload...),
			CreatedAt:    event.OccurredAt,
		}})
		return nil
	})
}

func (r *outboxRepository) ClaimUnpublished(_ context.Context, limit int, claimToken string, claimUntil time.Time) ([]ports.OutboxRecord, error) {
	if limit <= 0 {
		return nil, nil
	}
	now := time.Now().UTC()
	var out []ports.OutboxRecord
	err := r.with(func(st *state) error {
		for i := range st.outbox {
			row := &st.outbox[i]
			if row.PublishedAt != nil || row.DeadLettered != nil {
				continue
			}
			if row.claimToken != "" && row.claimUntil.After(now) {
				continue
			}
			row.claimToken = claimToken
			row.claimUntil = claimUntil
			out = append(out, row.OutboxRecord)
			if len(out) == limit {
				break
			}
		}
		return nil
	})
	return out, err
}

func (r *outboxRepository) MarkPublished(_ context.Context, outboxID uuid.UUID, claimToken string, at time.Time) error {
	return r.update(outboxID, claimToken, func(row *outboxRow) {
		published := at
		row.PublishedAt = &published
		row.claimToken = ""
		row.claimUntil = time.Time{}
	})
}

func (r *outboxRepository) MarkFailed(_ context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error {
	return r.update(outboxID, claimToken, func(row *outboxRow) {
		failedAt := at
		msg := errMsg
		row.RetryCount++
		row.LastError = &msg
		row.LastErrorAt = &failedAt
		row.claimToken = ""
		row.claimUntil = time.Time{}
	})
}

func (r *outboxRepository) MarkDeadLettered(_ context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error {
	return r.update(outboxID, claimToken, func(row *outboxRow) {
		parkedAt := at
		msg := errMsg
		row.RetryCount++
		row.LastError = &msg
		row.LastErrorAt = &parkedAt
		row.DeadLettered = &parkedAt
		row.claimToken = ""
		row.claimUntil = time.Time{}
	})
}

func (r *outboxRepository) update(id uuid.UUID, claimToken string, fn func(row *outboxRow)) error {
	return r.with(func(st *state) error {
		for i := range st.outbox {
			if st.outbox[i].OutboxID == id {
				if st.outbox[i].claimToken == claimToken {
					fn(&st.outbox[i])
				}
				return nil
			}
		}
		return domain.ErrNotFound
	})
}
