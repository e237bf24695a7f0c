package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/verichat/go-verichat/internal/database"
	"github.com/verichat/go-verichat/internal/progress"
	"github.com/verichat/go-verichat/internal/stats"
	"github.com/verichat/go-verichat/internal/testutil"
	"github.com/verichat/go-verichat/internal/token"
	"github.com/verichat/go-verichat/internal/types"
)

var testSigningKey = []byte("test-signing-key")

// newTestGateway creates a Gateway instance for testing purposes
func newTestGateway(t *testing.T, db database.VerichatRepository, su *stats.MockStatsUpdater) *Gateway {
	su.On("RegisterMetric", mock.Anything).Return().Times(4)

	logger := testutil.TestLogger(t)
	gw, err := NewGateway(logger, db, token.NewCodec(testSigningKey), progress.NewEngine(logger, db), su, time.Hour)
	if err != nil {
		t.Fatalf("failed to create test Gateway: %v", err)
	}
	return gw
}

func newTestClient(t *testing.T, gw *Gateway) *Client {
	return &Client{
		gateway: gw,
		log:     testutil.TestLogger(t),
		send:    make(chan *ServerEvent, 16),
		stop:    make(chan struct{}),
	}
}

func TestNewGateway(t *testing.T) {
	db := &database.MockVerichatRepository{}
	defer db.AssertExpectations(t)

	su := &stats.MockStatsUpdater{}
	defer su.AssertExpectations(t)
	su.On("RegisterMetric", mock.Anything).Return().Times(4)

	logger := testutil.TestLogger(t)
	gw, err := NewGateway(logger, db, token.NewCodec(testSigningKey), progress.NewEngine(logger, db), su, time.Hour)
	assert.NoError(t, err, "expected no error creating Gateway")
	assert.NotNil(t, gw, "expected Gateway to be non-nil")
	assert.Equal(t, logger, gw.log, "expected logger to be set")
	assert.Equal(t, db, gw.db, "expected repository to be set")
	assert.NotNil(t, gw.clients, "expected clients map to be initialized")
	assert.NotNil(t, gw.groups, "expected group registry to be initialized")
	assert.NotNil(t, gw.sid, "expected shortid generator to be initialized")
}

func TestRegisterDeregisterClient(t *testing.T) {
	su := &stats.MockStatsUpdater{}
	defer su.AssertExpectations(t)
	su.On("Incr", statActiveConnections).Return().Once()
	su.On("Decr", statActiveConnections).Return().Once()

	gw := newTestGateway(t, &database.MockVerichatRepository{}, su)
	c := newTestClient(t, gw)

	gw.RegisterClient(c)
	assert.Contains(t, gw.clients, c, "expected client to be registered")

	gw.DeregisterClient(c)
	assert.NotContains(t, gw.clients, c, "expected client to be deregistered")
}

func TestDeregisterClientLeavesGroup(t *testing.T) {
	su := &stats.MockStatsUpdater{}
	defer su.AssertExpectations(t)
	su.On("Incr", statActiveConnections).Return().Once()
	su.On("Decr", statActiveConnections).Return().Once()
	su.On("Incr", statActiveRooms).Return().Once()
	su.On("Decr", statActiveRooms).Return().Once()

	gw := newTestGateway(t, &database.MockVerichatRepository{}, su)
	c := newTestClient(t, gw)
	c.binding = &binding{role: types.RoleHR, roomId: "room-1"}

	gw.RegisterClient(c)
	gw.joinGroup("room-1", c)
	assert.Contains(t, gw.groups, "room-1", "expected group to exist after join")

	gw.DeregisterClient(c)
	assert.NotContains(t, gw.groups, "room-1", "expected empty group to be removed")
}

func Test_joinGroup_leaveGroup(t *testing.T) {
	su := &stats.MockStatsUpdater{}
	defer su.AssertExpectations(t)
	su.On("Incr", statActiveRooms).Return().Once()
	su.On("Decr", statActiveRooms).Return().Once()

	gw := newTestGateway(t, &database.MockVerichatRepository{}, su)
	c1 := newTestClient(t, gw)
	c2 := newTestClient(t, gw)

	gw.joinGroup("room-1", c1)
	gw.joinGroup("room-1", c2)
	assert.Len(t, gw.groups["room-1"], 2, "expected both clients in the group")

	gw.leaveGroup("room-1", c1)
	assert.Len(t, gw.groups["room-1"], 1, "expected one client after leave")
	assert.Contains(t, gw.groups["room-1"], c2, "expected remaining client in the group")

	gw.leaveGroup("room-1", c2)
	assert.NotContains(t, gw.groups, "room-1", "expected empty group to be removed")

	// leaving an unknown group is a no-op
	gw.leaveGroup("no-such-room", c1)
}

func TestBroadcastOrdering(t *testing.T) {
	su := &stats.MockStatsUpdater{}
	defer su.AssertExpectations(t)
	su.On("Incr", statActiveRooms).Return().Once()

	gw := newTestGateway(t, &database.MockVerichatRepository{}, su)
	c1 := newTestClient(t, gw)
	c2 := newTestClient(t, gw)

	gw.joinGroup("room-1", c1)
	gw.joinGroup("room-1", c2)

	msgEvent := ReceiveMessageEvent(types.RoleReferee, "answer", true, nil)
	progEvent := ProgressEvent(types.Progress{Answered: 1, Status: types.StatusPartial})
	gw.Broadcast("room-1", msgEvent, progEvent)

	// every observer sees the message event before the progress event
	for _, c := range []*Client{c1, c2} {
		first := <-c.send
		assert.NotNil(t, first.ReceiveMessage, "expected message event first")
		second := <-c.send
		assert.NotNil(t, second.Progress, "expected progress event second")
	}
}

func TestBroadcastSkipsDepartedClients(t *testing.T) {
	su := &stats.MockStatsUpdater{}
	defer su.AssertExpectations(t)
	su.On("Incr", statActiveRooms).Return().Once()

	gw := newTestGateway(t, &database.MockVerichatRepository{}, su)
	c1 := newTestClient(t, gw)
	c2 := newTestClient(t, gw)

	gw.joinGroup("room-1", c1)
	gw.joinGroup("room-1", c2)
	gw.leaveGroup("room-1", c1)

	gw.Broadcast("room-1", ProgressEvent(types.Progress{Answered: 0, Status: types.StatusPending}))

	select {
	case <-c1.send:
		t.Error("expected departed client not to receive the event")
	default:
	}

	select {
	case event := <-c2.send:
		assert.NotNil(t, event.Progress, "expected remaining client to receive the event")
	default:
		t.Error("expected remaining client to receive the event")
	}
}

func Test_createRoom(t *testing.T) {
	t.Run("successfully creates room", func(t *testing.T) {
		db := &database.MockVerichatRepository{}
		defer db.AssertExpectations(t)

		su := &stats.MockStatsUpdater{}
		defer su.AssertExpectations(t)
		su.On("Incr", statRoomsCreated).Return().Once()

		gw := newTestGateway(t, db, su)

		db.On("CreateRoom", mock.MatchedBy(func(params database.CreateRoomParams) bool {
			return params.ExternalId != "" &&
				params.CandidateRef == "candidate-42" &&
				time.Until(params.ExpiresAt) > 59*time.Minute
		})).Return(database.Room{Id: 1, ExternalId: "EoGKUXPHgz", CandidateRef: "candidate-42"}, nil).Once()

		room, err := gw.createRoom("candidate-42")
		assert.NoError(t, err, "expected no error creating room")
		assert.Equal(t, "EoGKUXPHgz", room.ExternalId, "expected room from the store")
	})

	t.Run("store failure", func(t *testing.T) {
		db := &database.MockVerichatRepository{}
		defer db.AssertExpectations(t)

		su := &stats.MockStatsUpdater{}
		defer su.AssertExpectations(t)

		gw := newTestGateway(t, db, su)

		db.On("CreateRoom", mock.Anything).Return(database.Room{}, errors.New("db error")).Once()

		_, err := gw.createRoom("candidate-42")
		assert.Error(t, err, "expected store failure to propagate")
	})
}

func TestGatewayShutdown(t *testing.T) {
	t.Run("no clients", func(t *testing.T) {
		gw := newTestGateway(t, &database.MockVerichatRepository{}, &stats.MockStatsUpdater{})

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		assert.NoError(t, gw.Shutdown(ctx), "expected clean shutdown with no clients")
	})

	t.Run("times out with stuck group", func(t *testing.T) {
		su := &stats.MockStatsUpdater{}
		su.On("Incr", statActiveConnections).Return().Once()
		su.On("Incr", statActiveRooms).Return().Once()

		gw := newTestGateway(t, &database.MockVerichatRepository{}, su)
		c := newTestClient(t, gw)
		gw.RegisterClient(c)
		gw.joinGroup("room-1", c)

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		err := gw.Shutdown(ctx)
		assert.Error(t, err, "expected shutdown to time out while a group is populated")

		select {
		case <-c.stop:
			// stop channel closed as expected
		default:
			t.Error("expected client stop channel to be closed on shutdown")
		}
	})
}
