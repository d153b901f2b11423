package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/wanderstay/staypoints/middleware"
	"github.com/wanderstay/staypoints/services/points"
	"github.com/wanderstay/staypoints/utils"
)

// PointsController exposes the points ledger over HTTP.
type PointsController struct {
	svc *points.Service
	log *zap.Logger
}

// NewPointsController creates a new controller instance.
func NewPointsController(svc *points.Service, log *zap.Logger) *PointsController {
	if log == nil {
		log = zap.NewNop()
	}
	return &PointsController{svc: svc, log: log}
}

type balanceResponse struct {
	TotalPoints      int64 `json:"total_points"`
	CurrentPoints    int64 `json:"current_points"`
	LifetimeEarned   int64 `json:"lifetime_earned"`
	LifetimeRedeemed int64 `json:"lifetime_redeemed"`
}

func toBalanceResponse(b points.Balance) balanceResponse {
	return balanceResponse{
		TotalPoints:      b.TotalPoints,
		CurrentPoints:    b.CurrentPoints,
		LifetimeEarned:   b.LifetimeEarned,
		LifetimeRedeemed: b.LifetimeRedeemed,
	}
}

type historyEntryResponse struct {
	ID           int64     `json:"id,string"`
	Action       string    `json:"action"`
	Amount       int64     `json:"amount"`
	BalanceAfter int64     `json:"balance_after"`
	ReferenceID  string    `json:"reference_id,omitempty"`
	Note         string    `json:"note,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type paginationResponse struct {
	Total   int64 `json:"total"`
	Limit   int   `json:"limit"`
	Offset  int   `json:"offset"`
	HasMore bool  `json:"has_more"`
}

type redeemRequest struct {
	Amount      int64  `json:"amount" binding:"required,gt=0,max=1000000000"`
	ReferenceID string `json:"reference_id" binding:"max=64"`
	Note        string `json:"note" binding:"max=1000"`
}

type awardRequest struct {
	UserID      uint   `json:"user_id" binding:"required"`
	Action      string `json:"action" binding:"required"`
	Amount      int64  `json:"amount" binding:"required,gt=0,max=1000000000"`
	ReferenceID string `json:"reference_id" binding:"max=64"`
	Note        string `json:"note" binding:"max=1000"`
}

type ledgerResponse struct {
	EntryID int64           `json:"entry_id,string"`
	Amount  int64           `json:"amount"`
	Balance balanceResponse `json:"balance"`
}

// Balance returns the caller's current balance.
func (p *PointsController) Balance(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	bal, err := p.svc.GetBalance(ctx.Request.Context(), userID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50040, "failed to load points balance")
		return
	}
	utils.Success(ctx, toBalanceResponse(bal))
}

// CheckIn performs the caller's daily check-in.
func (p *PointsController) CheckIn(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	res, err := p.svc.CheckIn(ctx.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, points.ErrAlreadyCheckedIn) {
			utils.Error(ctx, http.StatusConflict, 40930, err.Error())
			return
		}
		if errors.Is(err, points.ErrBalanceOverflow) {
			utils.Error(ctx, http.StatusConflict, 40933, err.Error())
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50041, "failed to record check-in")
		return
	}

	utils.Success(ctx, gin.H{
		"points":         res.Points,
		"base_points":    res.BasePoints,
		"bonus_points":   res.BonusPoints,
		"streak_count":   res.StreakCount,
		"longest_streak": res.LongestStreak,
		"date":           res.Date.String(),
		"message":        res.Message,
	})
}

// History lists the caller's ledger entries, most recent first.
func (p *PointsController) History(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	limit, err := queryInt(ctx, "limit")
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40041, "limit must be an integer")
		return
	}
	offset, err := queryInt(ctx, "offset")
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40041, "offset must be an integer")
		return
	}

	page, err := p.svc.GetHistory(ctx.Request.Context(), userID, points.HistoryQuery{
		Limit:  limit,
		Offset: offset,
		Action: points.Action(ctx.Query("action")),
	})
	if err != nil {
		var ve *points.ValidationError
		if errors.As(err, &ve) {
			utils.Error(ctx, http.StatusBadRequest, 40041, ve.Error())
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50042, "failed to load points history")
		return
	}

	entries := make([]historyEntryResponse, 0, len(page.Entries))
	for _, e := range page.Entries {
		entries = append(entries, historyEntryResponse{
			ID:           e.ID,
			Action:       string(e.Action),
			Amount:       e.Amount,
			BalanceAfter: e.BalanceAfter,
			ReferenceID:  e.ReferenceID,
			Note:         e.Note,
			CreatedAt:    e.CreatedAt,
		})
	}
	utils.Success(ctx, gin.H{
		"entries": entries,
		"pagination": paginationResponse{
			Total:   page.Total,
			Limit:   page.Limit,
			Offset:  page.Offset,
			HasMore: page.HasMore,
		},
	})
}

// Stats returns balance and streak state in one view.
func (p *PointsController) Stats(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	stats, err := p.svc.GetStats(ctx.Request.Context(), userID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50043, "failed to load points stats")
		return
	}

	var lastCheckIn *string
	if !stats.LastCheckInDate.IsZero() {
		s := stats.LastCheckInDate.String()
		lastCheckIn = &s
	}
	utils.Success(ctx, gin.H{
		"balance":            toBalanceResponse(stats.Balance),
		"current_streak":     stats.CurrentStreak,
		"longest_streak":     stats.LongestStreak,
		"last_check_in_date": lastCheckIn,
		"checked_in_today":   stats.CheckedInToday,
		"total_check_ins":    stats.TotalCheckIns,
		"next_bonus_in":      stats.NextBonusIn,
	})
}

// Redeem debits points from the caller's balance.
func (p *PointsController) Redeem(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var req redeemRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40042, "invalid redeem payload")
		return
	}

	res, err := p.svc.Redeem(ctx.Request.Context(), userID, points.RedeemRequest{
		Amount:      req.Amount,
		ReferenceID: req.ReferenceID,
		Note:        utils.SanitizeNote(req.Note),
	})
	if err != nil {
		p.ledgerError(ctx, err, 40042, 40931, 50044)
		return
	}
	utils.Success(ctx, toLedgerResponse(res))
}

// Award credits points to any user. Admin only.
func (p *PointsController) Award(ctx *gin.Context) {
	var req awardRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40043, "invalid award payload")
		return
	}

	res, err := p.svc.Award(ctx.Request.Context(), req.UserID, points.AwardRequest{
		Action:      points.Action(req.Action),
		Amount:      req.Amount,
		ReferenceID: req.ReferenceID,
		Note:        utils.SanitizeNote(req.Note),
	})
	if err != nil {
		p.ledgerError(ctx, err, 40043, 40932, 50045)
		return
	}

	p.log.Info("points awarded by admin",
		zap.String("admin", ctx.GetString(middleware.ContextUsernameKey)),
		zap.Uint("user_id", req.UserID),
		zap.String("action", req.Action),
		zap.Int64("amount", req.Amount),
	)
	utils.Success(ctx, toLedgerResponse(res))
}

// Audit compares a user's stored totals with the history ledger. Admin only.
func (p *PointsController) Audit(ctx *gin.Context) {
	userID, err := strconv.ParseUint(ctx.Param("userId"), 10, 32)
	if err != nil || userID == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40044, "invalid user id")
		return
	}

	report, err := p.svc.Audit(ctx.Request.Context(), uint(userID))
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50046, "failed to audit points ledger")
		return
	}
	utils.Success(ctx, gin.H{
		"user_id":           report.UserID,
		"current_points":    report.CurrentPoints,
		"lifetime_earned":   report.LifetimeEarned,
		"lifetime_redeemed": report.LifetimeRedeemed,
		"history_sum":       report.HistorySum,
		"entry_count":       report.EntryCount,
		"consistent":        report.Consistent,
	})
}

// ledgerError maps Award and Redeem failures. Insufficient points share the
// conflict code with the operation's own rejection; duplicates always use 40932.
func (p *PointsController) ledgerError(ctx *gin.Context, err error, badRequest, conflict, internal int) {
	var ve *points.ValidationError
	switch {
	case errors.As(err, &ve):
		utils.Error(ctx, http.StatusBadRequest, badRequest, ve.Error())
	case errors.Is(err, points.ErrDuplicateReference):
		utils.Error(ctx, http.StatusConflict, 40932, err.Error())
	case points.IsRejection(err):
		utils.Error(ctx, http.StatusConflict, conflict, err.Error())
	default:
		utils.Error(ctx, http.StatusInternalServerError, internal, "failed to update points ledger")
	}
}

func toLedgerResponse(res points.LedgerResult) ledgerResponse {
	return ledgerResponse{
		EntryID: res.EntryID,
		Amount:  res.Amount,
		Balance: toBalanceResponse(res.Balance),
	}
}

// queryInt reads an optional integer query parameter; absent means 0.
func queryInt(ctx *gin.Context, key string) (int, error) {
	raw := ctx.Query(key)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

func getUserID(ctx *gin.Context) (uint, bool) {
	value, exists := ctx.Get(middleware.ContextUserIDKey)
	if !exists {
		return 0, false
	}
	id, ok := value.(uint)
	return id, ok && id != 0
}
