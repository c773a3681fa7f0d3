package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/jason-s-yu/crazyaces/internal/claim"
	"github.com/jason-s-yu/crazyaces/internal/session"
)

// POST /session
//
// An empty body starts a session. {sessionToken, won} records a finished
// game reported by the client and returns a fresh token.
func (s *Server) postSession(w http.ResponseWriter, r *http.Request) {
	var in struct {
		SessionToken string `json:"sessionToken"`
		Won          *bool  `json:"won"`
	}
	if err := decodeJSON(w, r, &in); err != nil && !errors.Is(err, io.EOF) {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}

	if in.SessionToken == "" {
		rec, token, err := s.sessions.Create(r.Context(), clientIP(r))
		if err != nil {
			s.log.WithError(err).Error("Session create failed")
			writeErr(w, http.StatusInternalServerError, "could not create session")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"sessionToken": token, "winStreak": rec.WinStreak})
		return
	}

	if in.Won == nil {
		writeErr(w, http.StatusBadRequest, "won is required")
		return
	}
	p, err := s.sessions.Verify(in.SessionToken)
	if err != nil {
		writeErr(w, http.StatusUnauthorized, err.Error())
		return
	}
	res, err := s.sessions.RecordGameResult(r.Context(), p.SessionID, *in.Won)
	if err != nil {
		s.sessionErr(w, err, "could not update session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessionToken": res.Token, "winStreak": res.WinStreak})
}

// GET /session?token=
func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	rec, err := s.sessions.Status(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		s.sessionErr(w, err, "could not read session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"winStreak": rec.WinStreak, "gamesPlayed": rec.GamesPlayed})
}

// POST /claim-discount
func (s *Server) postClaim(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email        string `json:"email"`
		SessionToken string `json:"sessionToken"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if in.Email == "" || in.SessionToken == "" {
		writeErr(w, http.StatusBadRequest, "email and sessionToken are required")
		return
	}

	res, err := s.claims.Claim(r.Context(), in.Email, in.SessionToken)
	if err != nil {
		switch {
		case errors.Is(err, claim.ErrInvalidEmail), errors.Is(err, claim.ErrDisposableEmail), errors.Is(err, claim.ErrNoStreak):
			writeErr(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, session.ErrInvalidToken):
			writeErr(w, http.StatusUnauthorized, err.Error())
		case errors.Is(err, session.ErrSessionNotFound):
			writeErr(w, http.StatusNotFound, err.Error())
		case errors.Is(err, claim.ErrAlreadyClaimed):
			writeErr(w, http.StatusConflict, err.Error())
		default:
			s.log.WithError(err).Error("Discount claim failed")
			writeErr(w, http.StatusInternalServerError, "could not process claim")
		}
		return
	}

	if p, err := s.sessions.Verify(in.SessionToken); err == nil {
		s.games.markDiscountClaimed(p.SessionID)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":      fmt.Sprintf("Your %d%% discount code is on its way to your inbox.", res.Discount.Percent),
		"percent":      res.Discount.Percent,
		"winStreak":    res.WinStreak,
		"sessionToken": res.Token,
	})
}

// POST /game/ticket
func (s *Server) postTicket(w http.ResponseWriter, r *http.Request) {
	var in struct {
		SessionToken string `json:"sessionToken"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	rec, err := s.sessions.Status(r.Context(), in.SessionToken)
	if err != nil {
		s.sessionErr(w, err, "could not read session")
		return
	}
	ticket, err := s.tickets.Issue(rec.SessionID)
	if err != nil {
		s.log.WithError(err).Error("Ticket issue failed")
		writeErr(w, http.StatusInternalServerError, "could not issue ticket")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ticket": ticket, "expiresIn": int(s.tickets.TTL().Seconds())})
}

func (s *Server) sessionErr(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, session.ErrInvalidToken):
		writeErr(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, session.ErrSessionNotFound):
		writeErr(w, http.StatusNotFound, err.Error())
	default:
		s.log.WithError(err).Error(msg)
		writeErr(w, http.StatusInternalServerError, msg)
	}
}
