package ws

import (
	"context"

	"buzzin/internal/game"
)

func (s *WsServer) registerHandlers() {
	// 🔹 host events ---------------------------------------------------------
	Register(
		s.router,
		"host:createRoom",
		func(_ context.Context, cc *ConnContext, req CreateRoomRequest) (CreateRoomAck, error) {
			room, err := s.rooms.Create(cc.ConnID, req.HostName)
			if err != nil {
				return CreateRoomAck{}, err
			}
			s.sessions.bind(cc.ConnID, room.Code())
			return CreateRoomAck{Ack: okAck(), Code: room.Code(), HostToken: room.HostToken()}, nil
		},
	)

	Register(
		s.router,
		"host:setTeamNames",
		func(_ context.Context, cc *ConnContext, req SetTeamNamesRequest) (Ack, error) {
			return s.onRoom(req.Code, func(r *game.Room) error {
				return r.SetTeamNames(cc.ConnID, req.TeamAName, req.TeamBName)
			})
		},
	)

	Register(
		s.router,
		"host:assignPlayerToTeam",
		func(_ context.Context, cc *ConnContext, req AssignPlayerRequest) (Ack, error) {
			if !req.Team.Set {
				return Ack{}, ErrMalformed
			}
			return s.onRoom(req.Code, func(r *game.Room) error {
				return r.AssignPlayer(cc.ConnID, req.PlayerID, req.Team.Key)
			})
		},
	)

	Register(
		s.router,
		"host:kickPlayer",
		func(_ context.Context, cc *ConnContext, req KickPlayerRequest) (Ack, error) {
			return s.onRoom(req.Code, func(r *game.Room) error {
				return r.KickPlayer(cc.ConnID, req.PlayerID)
			})
		},
	)

	Register(
		s.router,
		"host:reclaimRoom",
		func(_ context.Context, cc *ConnContext, req ReclaimRequest) (Ack, error) {
			return s.onRoom(req.Code, func(r *game.Room) error {
				if err := r.Reclaim(cc.ConnID, req.HostToken); err != nil {
					return err
				}
				s.sessions.bind(cc.ConnID, r.Code())
				return nil
			})
		},
	)

	s.hostAction("host:startGame", (*game.Room).StartGame)
	s.hostAction("host:awardPoint", (*game.Room).AwardPoint)
	s.hostAction("host:markWrongOrSkip", (*game.Room).MarkWrongOrSkip)
	s.hostAction("host:nextRound", (*game.Room).NextRound)
	s.hostAction("host:skipRound", (*game.Room).SkipRound)
	s.hostAction("host:clearScores", (*game.Room).ClearScores)

	// 🔹 player events -------------------------------------------------------
	Register(
		s.router,
		"player:joinRoom",
		func(_ context.Context, cc *ConnContext, req JoinRoomRequest) (JoinRoomAck, error) {
			room, err := s.rooms.Get(req.Code)
			if err != nil {
				return JoinRoomAck{}, err
			}
			id, err := room.Join(cc.ConnID, req.PlayerID, req.PlayerName)
			if err != nil {
				return JoinRoomAck{}, err
			}
			s.sessions.bind(cc.ConnID, room.Code())
			return JoinRoomAck{Ack: okAck(), Code: room.Code(), PlayerID: id}, nil
		},
	)

	Register(
		s.router,
		"player:buzz",
		func(_ context.Context, cc *ConnContext, req BuzzRequest) (Ack, error) {
			return s.onRoom(req.Code, func(r *game.Room) error {
				return r.Buzz(cc.ConnID, req.PlayerID)
			})
		},
	)

	Register(
		s.router,
		"ping:activity",
		func(_ context.Context, _ *ConnContext, req RoomRequest) (Ack, error) {
			return s.onRoom(req.Code, (*game.Room).Touch)
		},
	)
}

// hostAction registers an event whose body only names the room and whose
// effect is a single host-only room method.
func (s *WsServer) hostAction(event string, act func(r *game.Room, connID string) error) {
	Register(
		s.router,
		event,
		func(_ context.Context, cc *ConnContext, req RoomRequest) (Ack, error) {
			return s.onRoom(req.Code, func(r *game.Room) error {
				return act(r, cc.ConnID)
			})
		},
	)
}

func (s *WsServer) onRoom(code string, f func(*game.Room) error) (Ack, error) {
	r, err := s.rooms.Get(code)
	if err != nil {
		return Ack{}, err
	}
	if err := f(r); err != nil {
		return Ack{}, err
	}
	return okAck(), nil
}
