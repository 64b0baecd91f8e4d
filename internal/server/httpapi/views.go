package httpapi

import (
	"time"

	"github.com/dmitrijs2005/netguard/internal/common"
	"github.com/dmitrijs2005/netguard/internal/server/models"
)

// accountView is the public shape of an account. The password hash never
// leaves the server.
type accountView struct {
	ID        string    `json:"id"`
	UserName  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Active    bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func newAccountView(a *models.Account) accountView {
	return accountView{
		ID:        a.ID,
		UserName:  a.UserName,
		Email:     a.Email,
		Role:      string(a.Role),
		Active:    a.Active,
		CreatedAt: a.CreatedAt,
	}
}

func newAccountViews(list []*models.Account) []accountView {
	out := make([]accountView, 0, len(list))
	for _, a := range list {
		out = append(out, newAccountView(a))
	}
	return out
}

type detectionView struct {
	ID         string    `json:"id"`
	AccountID  string    `json:"account_id"`
	Prediction string    `json:"prediction"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
	IPAddress  string    `json:"ip_address"`
	Protocol   string    `json:"protocol"`
	SrcBytes   int64     `json:"src_bytes"`
	DstBytes   int64     `json:"dst_bytes"`
	IsAttack   bool      `json:"is_attack"`
}

func newDetectionViews(list []*models.Detection) []detectionView {
	out := make([]detectionView, 0, len(list))
	for _, d := range list {
		out = append(out, detectionView{
			ID:         d.ID,
			AccountID:  d.AccountID,
			Prediction: d.Prediction,
			Confidence: d.Confidence,
			Timestamp:  d.Timestamp,
			IPAddress:  d.IPAddress,
			Protocol:   d.Protocol,
			SrcBytes:   d.SrcBytes,
			DstBytes:   d.DstBytes,
			IsAttack:   d.Prediction != common.NormalLabel,
		})
	}
	return out
}

type statsView struct {
	Total  int64 `json:"total"`
	Normal int64 `json:"normal"`
	Attack int64 `json:"attack"`
}

func newStatsView(s models.DetectionStats) statsView {
	return statsView{Total: s.Total, Normal: s.Normal, Attack: s.Attack}
}
