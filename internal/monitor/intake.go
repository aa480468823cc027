package monitor

import (
	"net/http"

	"github.com/bytedance/sonic"

	"signal_gate/internal/models"
	"signal_gate/pkg/logger"
)

// intakeRequest — сигнал от внешнего генератора: контекст для гейтов
// плюс сам снапшот сигнала.
type intakeRequest struct {
	Context models.SignalContext `json:"context"`
	Signal  models.Signal        `json:"signal"`
}

type intakeResponse struct {
	Admitted bool   `json:"admitted"`
	ID       int64  `json:"id,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// RegisterIntake вешает приём сигналов на общий admin-mux.
func (m *Monitor) RegisterIntake(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/signal", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req intakeRequest
		if err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
			return
		}
		if req.Signal.Symbol == "" || req.Signal.Entry <= 0 {
			http.Error(w, "symbol and entry are required", http.StatusBadRequest)
			return
		}

		id, admitted, reason, err := m.HandleSignal(r.Context(), req.Context, req.Signal)
		if err != nil {
			logger.Error("intake %s: %v", req.Signal.Symbol, err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if !admitted {
			w.WriteHeader(http.StatusConflict)
		}
		_ = sonic.ConfigDefault.NewEncoder(w).Encode(intakeResponse{
			Admitted: admitted,
			ID:       id,
			Reason:   reason,
		})
	})
}
