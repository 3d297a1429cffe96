package familyportrait

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"family-portrait-server/modules/common/apperr"
)

// SignedURLTTL - clean 이미지 signed URL 유효 시간
const SignedURLTTL = time.Hour

// Signer - private 저장소 locator를 임시 공개 URL로 바꾼다 (storage.Client)
type Signer interface {
	Owns(locator string) bool
	SignURL(ctx context.Context, locator string, expiresIn time.Duration) (string, error)
}

// Handler - family portrait HTTP 핸들러
type Handler struct {
	service  *Service
	unlocker Unlocker
	signer   Signer
}

// NewHandler - signer가 nil이면 clean locator를 그대로 돌려준다
func NewHandler(service *Service, unlocker Unlocker, signer Signer) *Handler {
	if unlocker == nil {
		unlocker = LockedUnlocker{}
	}
	return &Handler{service: service, unlocker: unlocker, signer: signer}
}

// RegisterRoutes - 라우트 등록
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/family-portrait/generate", h.HandleGenerate).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/family-portrait/assets/{assetId}", h.HandleGetAsset).Methods("GET", "OPTIONS")
}

// StatusFor - 에러 종류 → HTTP status
func StatusFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindConfiguration:
		return http.StatusServiceUnavailable
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindTaskTimeout:
		return http.StatusGatewayTimeout
	case apperr.KindTaskFailed, apperr.KindTransfer, apperr.KindGenerationFailed:
		return http.StatusBadGateway
	}
	if errors.Is(err, context.Canceled) {
		return http.StatusRequestTimeout
	}
	return http.StatusInternalServerError
}

func errorCode(err error) string {
	if kind := apperr.KindOf(err); kind != "" {
		return string(kind)
	}
	return "internal"
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// HandleGenerate - POST /api/family-portrait/generate
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("❌ [FamilyPortrait] Invalid request: %v", err)
		writeJSON(w, http.StatusBadRequest, GenerateResponse{
			Success:      false,
			ErrorCode:    string(apperr.KindValidation),
			ErrorMessage: "Invalid request format",
		})
		return
	}

	artifact, err := h.service.Generate(r.Context(), &req)
	if err != nil {
		status := StatusFor(err)
		log.Printf("❌ [FamilyPortrait] Generate failed (%d): %v", status, err)
		writeJSON(w, status, GenerateResponse{
			Success:      false,
			ErrorCode:    errorCode(err),
			ErrorMessage: err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, GenerateResponse{Success: true, Artifact: artifact})
}

// HandleGetAsset - GET /api/family-portrait/assets/{assetId}
// unlock 되지 않은 asset은 402, 모르는/만료된 id는 404
func (h *Handler) HandleGetAsset(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	ctx := r.Context()
	assetID := mux.Vars(r)["assetId"]

	unlocked, err := h.unlocker.IsUnlocked(ctx, assetID)
	if err != nil {
		log.Printf("❌ [FamilyPortrait] Unlock check failed for %s: %v", assetID, err)
		writeJSON(w, http.StatusServiceUnavailable, AssetResponse{
			Success:      false,
			ErrorCode:    "unlock_unavailable",
			ErrorMessage: "unlock status is temporarily unavailable",
		})
		return
	}
	if !unlocked {
		writeJSON(w, http.StatusPaymentRequired, AssetResponse{
			Success:      false,
			AssetID:      assetID,
			ErrorCode:    "locked",
			ErrorMessage: "this artwork has not been unlocked",
		})
		return
	}

	clean, err := h.service.ResolveAsset(ctx, assetID)
	if err != nil {
		writeJSON(w, StatusFor(err), AssetResponse{
			Success:      false,
			AssetID:      assetID,
			ErrorCode:    errorCode(err),
			ErrorMessage: err.Error(),
		})
		return
	}

	if h.signer != nil && h.signer.Owns(clean) {
		signed, err := h.signer.SignURL(ctx, clean, SignedURLTTL)
		if err != nil {
			log.Printf("❌ [FamilyPortrait] Failed to sign clean URL for %s: %v", assetID, err)
			writeJSON(w, http.StatusBadGateway, AssetResponse{
				Success:      false,
				AssetID:      assetID,
				ErrorCode:    string(apperr.KindTransfer),
				ErrorMessage: "failed to prepare download link",
			})
			return
		}
		clean = signed
	}

	log.Printf("🔓 [FamilyPortrait] Asset %s resolved for unlocked caller", assetID)
	writeJSON(w, http.StatusOK, AssetResponse{Success: true, AssetID: assetID, CleanURL: clean})
}
