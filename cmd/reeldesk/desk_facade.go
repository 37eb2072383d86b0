package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"reeldesk/internal/api"
	"reeldesk/internal/auth"
	"reeldesk/internal/config"
	"reeldesk/internal/handoff"
	"reeldesk/internal/ipc"
	"reeldesk/internal/logging"
	"reeldesk/internal/store"
)

type deskAPI interface {
	Online() bool
	List(ctx context.Context, actor ipc.Actor, view string) ([]api.Room, error)
	Describe(ctx context.Context, id string) (*ipc.RoomDescribeResponse, error)
	Claim(ctx context.Context, actor ipc.Actor, id string) (*ipc.ClaimResponse, error)
	Close(ctx context.Context, actor ipc.Actor, id string) (bool, error)
	Post(ctx context.Context, actor ipc.Actor, id, content string) (api.Message, error)
	Notifications(ctx context.Context, unreadOnly bool, limit int) ([]api.Notification, error)
}

// --- IPC adapter ---

type deskIPCAdapter struct {
	client *ipc.Client
}

func (a *deskIPCAdapter) Online() bool { return true }

func (a *deskIPCAdapter) List(_ context.Context, actor ipc.Actor, view string) ([]api.Room, error) {
	resp, err := a.client.RoomList(actor, view)
	if err != nil {
		return nil, err
	}
	return resp.Rooms, nil
}

func (a *deskIPCAdapter) Describe(_ context.Context, id string) (*ipc.RoomDescribeResponse, error) {
	return a.client.RoomDescribe(id)
}

func (a *deskIPCAdapter) Claim(_ context.Context, actor ipc.Actor, id string) (*ipc.ClaimResponse, error) {
	return a.client.Claim(actor, id)
}

func (a *deskIPCAdapter) Close(_ context.Context, actor ipc.Actor, id string) (bool, error) {
	resp, err := a.client.CloseRoom(actor, id)
	if err != nil {
		return false, err
	}
	return resp.Closed, nil
}

func (a *deskIPCAdapter) Post(_ context.Context, actor ipc.Actor, id, content string) (api.Message, error) {
	resp, err := a.client.Post(actor, id, content)
	if err != nil {
		return api.Message{}, err
	}
	return resp.Message, nil
}

func (a *deskIPCAdapter) Notifications(_ context.Context, unreadOnly bool, limit int) ([]api.Notification, error) {
	resp, err := a.client.NotificationList(unreadOnly, limit)
	if err != nil {
		return nil, err
	}
	return resp.Notifications, nil
}

// --- Store adapter ---

// deskStoreAdapter applies the room rules directly against the database. It
// has no feed hub and sends no push notifications.
type deskStoreAdapter struct {
	store *store.Store
	coord *handoff.Coordinator
}

func newDeskStoreAdapter(cfg *config.Config, st *store.Store) *deskStoreAdapter {
	return &deskStoreAdapter{
		store: st,
		coord: handoff.New(st, nil, nil, cfg.Limits, logging.NewNop()),
	}
}

func staffIdentity(actor ipc.Actor) (auth.Identity, error) {
	if strings.TrimSpace(actor.StaffID) == "" {
		return auth.Identity{}, errors.New("staff id is required")
	}
	return auth.Identity{UserID: actor.StaffID, Role: auth.RoleStaff, Name: actor.StaffName}, nil
}

func (a *deskStoreAdapter) Online() bool { return false }

func (a *deskStoreAdapter) List(ctx context.Context, actor ipc.Actor, view string) ([]api.Room, error) {
	var (
		rooms []*store.Room
		err   error
	)
	switch strings.ToLower(strings.TrimSpace(view)) {
	case "", "unclaimed":
		rooms, err = a.coord.ListUnclaimedActive(ctx)
	case "mine":
		rooms, err = a.coord.ListClaimedByStaff(ctx, actor.StaffID)
	case "all":
		rooms, err = a.store.ListRooms(ctx, store.RoomFilter{})
	default:
		return nil, fmt.Errorf("unknown room view %q", view)
	}
	if err != nil {
		return nil, err
	}
	return api.FromRooms(rooms), nil
}

func (a *deskStoreAdapter) Describe(ctx context.Context, id string) (*ipc.RoomDescribeResponse, error) {
	room, err := a.store.GetRoom(ctx, id)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, fmt.Errorf("room %s not found", id)
	}
	msgs, err := a.store.ListMessages(ctx, id)
	if err != nil {
		return nil, err
	}
	return &ipc.RoomDescribeResponse{Room: api.FromRoom(room), Messages: api.FromMessages(msgs)}, nil
}

func (a *deskStoreAdapter) Claim(ctx context.Context, actor ipc.Actor, id string) (*ipc.ClaimResponse, error) {
	staff, err := staffIdentity(actor)
	if err != nil {
		return nil, err
	}
	res, err := a.coord.Claim(ctx, id, staff)
	if err != nil {
		return nil, err
	}
	return &ipc.ClaimResponse{Claimed: res.Claimed, Room: api.FromRoom(res.Room)}, nil
}

func (a *deskStoreAdapter) Close(ctx context.Context, actor ipc.Actor, id string) (bool, error) {
	staff, err := staffIdentity(actor)
	if err != nil {
		return false, err
	}
	return a.coord.Close(ctx, id, staff)
}

func (a *deskStoreAdapter) Post(ctx context.Context, actor ipc.Actor, id, content string) (api.Message, error) {
	staff, err := staffIdentity(actor)
	if err != nil {
		return api.Message{}, err
	}
	msg, err := a.coord.Post(ctx, id, staff, content)
	if err != nil {
		return api.Message{}, err
	}
	return api.FromMessage(msg), nil
}

func (a *deskStoreAdapter) Notifications(ctx context.Context, unreadOnly bool, limit int) ([]api.Notification, error) {
	items, err := a.store.ListNotifications(ctx, store.AudienceStaff, unreadOnly, limit)
	if err != nil {
		return nil, err
	}
	return api.FromNotifications(items), nil
}
