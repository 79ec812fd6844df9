package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"tycooncore/internal/engine"
	"tycooncore/internal/progression"
	"tycooncore/pkg/domain"
)

type newGameRequest struct {
	Player string `json:"player"`
}

func (h *Handler) newGame(w http.ResponseWriter, r *http.Request) {
	var req newGameRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	save, err := h.svc.NewGame(r.Context(), req.Player)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"save": save})
}

func (h *Handler) getSave(w http.ResponseWriter, r *http.Request) {
	save, ok := h.svc.Save()
	if !ok {
		h.fail(w, r, domain.ErrNoActiveSave)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"save": save})
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request) {
	save, ok := h.svc.Load(r.Context())
	if !ok {
		writeError(w, http.StatusNotFound, "no readable save")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"save": save})
}

func (h *Handler) persist(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Persist(r.Context()); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) reset(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Reset(r.Context()); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) updateSettings(w http.ResponseWriter, r *http.Request) {
	var patch engine.SettingsPatch
	if err := decode(r, &patch); err != nil {
		h.fail(w, r, err)
		return
	}
	settings, err := h.svc.UpdateSettings(r.Context(), patch)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"settings": settings})
}

func (h *Handler) listBackups(w http.ResponseWriter, r *http.Request) {
	keys, err := h.svc.Backups(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"backups": keys})
}

func (h *Handler) backup(w http.ResponseWriter, r *http.Request) {
	key, err := h.svc.Backup(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"key": key})
}

func (h *Handler) restoreBackup(w http.ResponseWriter, r *http.Request) {
	save, err := h.svc.RestoreBackup(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"save": save})
}

func (h *Handler) archive(w http.ResponseWriter, r *http.Request) {
	info, err := h.svc.Archive(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"object": info})
}

func (h *Handler) listArchived(w http.ResponseWriter, r *http.Request) {
	objects, err := h.svc.Archived(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"objects": objects})
}

type rankResponse struct {
	Rank           int                    `json:"rank"`
	Slots          int                    `json:"slots"`
	NextUnlockRank *int                   `json:"next_unlock_rank,omitempty"`
	Tiers          []progression.RankTier `json:"tiers"`
}

// ranks reports the slot allowance for ?rank=, or the active save's rank.
func (h *Handler) ranks(w http.ResponseWriter, r *http.Request) {
	var rank int
	if raw := r.URL.Query().Get("rank"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			h.fail(w, r, domain.Validationf(domain.ReasonInvalidInput, "rank %q is not a number", raw))
			return
		}
		rank = n
	} else {
		save, ok := h.svc.Save()
		if !ok {
			h.fail(w, r, domain.ErrNoActiveSave)
			return
		}
		rank = save.Progression.Rank
	}
	resp := rankResponse{Rank: rank, Slots: h.svc.SlotsForRank(rank), Tiers: h.svc.RankTiers()}
	if next, ok := h.svc.NextUnlockRank(rank); ok {
		resp.NextUnlockRank = &next
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) upgradeCost(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("level")
	level, err := strconv.Atoi(raw)
	if err != nil || level < 1 {
		h.fail(w, r, domain.Validationf(domain.ReasonInvalidInput, "level %q must be a positive number", raw))
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{
		"level":        level,
		"cost":         h.svc.CostForLevel(level),
		"cap_increase": h.svc.CapIncrease(),
	})
}

func (h *Handler) slots(w http.ResponseWriter, r *http.Request) {
	views, err := h.svc.Slots()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"slots": views})
}

func (h *Handler) buySlot(w http.ResponseWriter, r *http.Request) {
	index, err := pathIndex(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	bar, err := h.svc.BuySlot(r.Context(), index)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"bar": bar})
}

func (h *Handler) sellSlot(w http.ResponseWriter, r *http.Request) {
	index, err := pathIndex(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	refund, err := h.svc.SellSlot(r.Context(), index)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"refund": refund})
}

func (h *Handler) candidates(w http.ResponseWriter, r *http.Request) {
	pool, err := h.svc.Candidates()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"candidates": pool})
}

type hireRequest struct {
	CandidateID string `json:"candidate_id"`
	BarID       string `json:"bar_id"`
}

func (h *Handler) hire(w http.ResponseWriter, r *http.Request) {
	var req hireRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	emp, err := h.svc.Hire(r.Context(), req.CandidateID, req.BarID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"employee": emp})
}

func (h *Handler) fire(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Fire(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type assignRequest struct {
	BarID string `json:"bar_id"`
}

func (h *Handler) assign(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	out, err := h.svc.Assign(r.Context(), chi.URLParam(r, "id"), req.BarID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	status := http.StatusOK
	if out.Status == engine.AssignPending {
		status = http.StatusAccepted
	}
	writeJSON(w, status, out)
}

func (h *Handler) unassign(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Unassign(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) pendingMove(w http.ResponseWriter, _ *http.Request) {
	move, ok := h.svc.PendingMove()
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"pending": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"pending": move})
}

func (h *Handler) previewMove(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	preview, err := h.svc.PreviewReassignment(q.Get("employee"), q.Get("bar"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

func (h *Handler) confirmMove(w http.ResponseWriter, r *http.Request) {
	move, err := h.svc.ConfirmReassignment(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"applied": move})
}

func (h *Handler) cancelMove(w http.ResponseWriter, r *http.Request) {
	move, err := h.svc.CancelReassignment()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cancelled": move})
}

type upgradeRequest struct {
	BarID    string          `json:"bar_id"`
	Category domain.Category `json:"category"`
}

func (h *Handler) requestUpgrade(w http.ResponseWriter, r *http.Request) {
	var req upgradeRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	quote, err := h.svc.RequestUpgrade(r.Context(), req.BarID, req.Category)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"pending": quote})
}

func (h *Handler) pendingUpgrade(w http.ResponseWriter, _ *http.Request) {
	quote, ok := h.svc.PendingUpgradeRequest()
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"pending": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"pending": quote})
}

func (h *Handler) confirmUpgrade(w http.ResponseWriter, r *http.Request) {
	applied, err := h.svc.ConfirmUpgrade(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"applied": applied})
}

func (h *Handler) cancelUpgrade(w http.ResponseWriter, r *http.Request) {
	quote, err := h.svc.CancelUpgrade()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cancelled": quote})
}

func (h *Handler) breakdown(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.Breakdown(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *Handler) aggregateStat(w http.ResponseWriter, r *http.Request) {
	category := domain.Category(chi.URLParam(r, "category"))
	total, err := h.svc.AggregateStat(chi.URLParam(r, "id"), category)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"category": category, "total": total})
}

func (h *Handler) report(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Report()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *Handler) advance(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.AdvancePeriod(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
