package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/room-allocation-api/internal/models"
	"github.com/noah-isme/room-allocation-api/pkg/config"
	appErrors "github.com/noah-isme/room-allocation-api/pkg/errors"
)

type roomLocker interface {
	FindByKey(ctx context.Context, exec sqlx.ExtContext, key models.RoomKey, forUpdate bool) (*models.Room, error)
}

type roomStatusWriter interface {
	UpdateStatus(ctx context.Context, exec sqlx.ExtContext, key models.RoomKey, status models.RoomStatus) error
}

type confirmedCounter interface {
	CountConfirmedByRoom(ctx context.Context, exec sqlx.ExtContext, room models.RoomKey, exclude *models.AllocationKey) (int, error)
}

// roomOccupancy writes the cached room status inside the caller's transaction.
type roomOccupancy struct {
	rooms       roomStatusWriter
	allocations confirmedCounter
	policy      string
}

func (o roomOccupancy) occupy(ctx context.Context, exec sqlx.ExtContext, key models.RoomKey) error {
	return o.write(ctx, exec, key, models.RoomStatusOccupied)
}

// release frees a room. Under the recompute policy the room stays occupied while another
// confirmed allocation, other than exclude, still holds it.
func (o roomOccupancy) release(ctx context.Context, exec sqlx.ExtContext, key models.RoomKey, exclude *models.AllocationKey) error {
	if o.policy == config.ReleaseRecompute {
		count, err := o.allocations.CountConfirmedByRoom(ctx, exec, key, exclude)
		if err != nil {
			return appErrors.Internal(err, "failed to count room allocations")
		}
		if count > 0 {
			return nil
		}
	}
	return o.write(ctx, exec, key, models.RoomStatusFree)
}

func (o roomOccupancy) write(ctx context.Context, exec sqlx.ExtContext, key models.RoomKey, status models.RoomStatus) error {
	if err := o.rooms.UpdateStatus(ctx, exec, key, status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrRoomNotFound, "")
		}
		return appErrors.Internal(err, "failed to update room status")
	}
	return nil
}

// lockRoom loads the room row FOR UPDATE so concurrent bookings of that room serialize.
// Transactions take their locks schedule row first, then rooms in lockOrder, then allocation rows.
func lockRoom(ctx context.Context, exec sqlx.ExtContext, rooms roomLocker, key models.RoomKey) (*models.Room, error) {
	room, err := rooms.FindByKey(ctx, exec, key, true)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrRoomNotFound, fmt.Sprintf("room %d/%s not found", key.Number, key.Type))
		}
		return nil, appErrors.Internal(err, "failed to load room")
	}
	return room, nil
}

// lockOrder returns the distinct room keys in ascending order.
func lockOrder(keys []models.RoomKey) []models.RoomKey {
	seen := make(map[models.RoomKey]struct{}, len(keys))
	ordered := make([]models.RoomKey, 0, len(keys))
	for _, key := range keys {
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		ordered = append(ordered, key)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Less(ordered[j]) })
	return ordered
}
