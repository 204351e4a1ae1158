package api

import (
	"bytes"
	"encoding/base64"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/yuin/goldmark"

	"uniasset/pkg/uniasset"
)

const (
	defaultLogLimit = 50
	maxLogLimit     = 500
)

var markdown = goldmark.New()

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, healthResponse{Status: "ok", AIAvailable: h.core.AIAvailable()})
}

func (h *handler) getDashboard(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, h.core.Dashboard())
}

// Assets

func (h *handler) getAssets(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, h.core.Assets())
}

func (h *handler) getAsset(w http.ResponseWriter, r *http.Request) {
	asset, err := h.core.Asset(chi.URLParam(r, "id"))
	if err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	writeSuccess(w, asset)
}

func (h *handler) addAsset(w http.ResponseWriter, r *http.Request) {
	var payload draftPayload
	if err := decodeAndValidate(w, r, &payload); err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	asset, err := h.core.AddAsset(r.Context(), payload.toDraft())
	if err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	writeCreated(w, asset)
}

func (h *handler) updateAsset(w http.ResponseWriter, r *http.Request) {
	var payload draftPayload
	if err := decodeAndValidate(w, r, &payload); err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	asset, err := h.core.UpdateAsset(r.Context(), chi.URLParam(r, "id"), payload.toDraft())
	if err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	writeSuccess(w, asset)
}

func (h *handler) deleteAsset(w http.ResponseWriter, r *http.Request) {
	if err := h.core.DeleteAsset(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	writeSuccessWithMessage(w, "deleted", nil)
}

func (h *handler) reconcileDraft(w http.ResponseWriter, r *http.Request) {
	var payload reconcilePayload
	if err := decodeAndValidate(w, r, &payload); err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	draft, err := payload.Draft.toDraft().Reconcile(payload.Field, uniasset.NewAmount(payload.Value))
	if err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	writeSuccess(w, draft)
}

func (h *handler) parseDraft(w http.ResponseWriter, r *http.Request) {
	var payload parsePayload
	if err := decodeAndValidate(w, r, &payload); err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	current := uniasset.NewDraft()
	if payload.Draft != nil {
		current = payload.Draft.toDraft()
	}
	var image *uniasset.ImageInput
	if payload.Image != "" {
		data, err := base64.StdEncoding.DecodeString(payload.Image)
		if err != nil {
			writeErrorResponse(w, r, uniasset.WrapError(uniasset.ErrCodeInvalidInput, "image is not valid base64", err))
			return
		}
		mimeType := payload.ImageMIMEType
		if mimeType == "" {
			mimeType = http.DetectContentType(data)
		}
		image = &uniasset.ImageInput{MIMEType: mimeType, Data: data}
	}
	draft, err := h.core.ParseDraft(r.Context(), current, payload.Text, image)
	if err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	writeSuccess(w, draft)
}

func (h *handler) getQuote(w http.ResponseWriter, r *http.Request) {
	quote, err := h.core.LookupQuote(r.Context(), r.URL.Query().Get("symbol"))
	if err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	writeSuccess(w, quote)
}

// Catalog

func (h *handler) suggestSymbols(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, uniasset.SuggestSymbols(r.URL.Query().Get("q")))
}

func (h *handler) suggestPlatforms(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, uniasset.SuggestPlatforms(r.URL.Query().Get("q")))
}

// Wallets

func (h *handler) getWallets(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, h.core.Wallets())
}

func (h *handler) classifyAddress(w http.ResponseWriter, r *http.Request) {
	address := strings.TrimSpace(r.URL.Query().Get("address"))
	if address == "" {
		writeErrorResponse(w, r, uniasset.NewError(uniasset.ErrCodeValidation, "address is required"))
		return
	}
	chain, ok := uniasset.ClassifyAddress(address)
	writeSuccess(w, classifyResponse{Address: address, Valid: ok, Chain: chain, Demo: uniasset.IsDemoAddress(address)})
}

func (h *handler) connectWallet(w http.ResponseWriter, r *http.Request) {
	var payload connectWalletPayload
	if err := decodeAndValidate(w, r, &payload); err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	var chain uniasset.Chain
	if payload.Chain != "" {
		chain, _ = uniasset.ParseChain(payload.Chain)
	}
	wallet, assets, err := h.core.ConnectWallet(r.Context(), payload.Address, chain)
	if err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	writeCreated(w, walletAssetsResponse{Wallet: wallet, Assets: assets})
}

func (h *handler) syncWallet(w http.ResponseWriter, r *http.Request) {
	wallet, assets, err := h.core.SyncWallet(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	writeSuccess(w, walletAssetsResponse{Wallet: wallet, Assets: assets})
}

func (h *handler) syncAllWallets(w http.ResponseWriter, r *http.Request) {
	result, err := h.core.SyncAll(r.Context())
	if err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	writeSuccess(w, result)
}

func (h *handler) removeWallet(w http.ResponseWriter, r *http.Request) {
	wallet, removed, err := h.core.RemoveWallet(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	writeSuccess(w, removeWalletResponse{Wallet: wallet, RemovedAssets: removed})
}

// Events

func (h *handler) getEvents(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, h.core.EventFeed())
}

func (h *handler) getEventExposure(w http.ResponseWriter, r *http.Request) {
	exposure, err := h.core.EventExposure(chi.URLParam(r, "id"))
	if err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	writeSuccess(w, exposure)
}

func (h *handler) refreshEvents(w http.ResponseWriter, r *http.Request) {
	added, err := h.core.RefreshInsights(r.Context())
	if err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	writeSuccess(w, refreshResponse{Added: added, Feed: h.core.EventFeed()})
}

// Advisory

func (h *handler) getMessages(w http.ResponseWriter, r *http.Request) {
	advisor := h.core.Advisor()
	messages := advisor.Messages()
	views := make([]chatMessageView, 0, len(messages))
	for _, m := range messages {
		views = append(views, h.renderMessage(m))
	}
	writeSuccess(w, transcriptResponse{Messages: views, Busy: advisor.Busy()})
}

func (h *handler) sendMessage(w http.ResponseWriter, r *http.Request) {
	var payload sendMessagePayload
	if err := decodeAndValidate(w, r, &payload); err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	reply, err := h.core.SendMessage(r.Context(), payload.Text)
	if err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	writeSuccess(w, h.renderMessage(reply))
}

func (h *handler) renderMessage(m uniasset.ChatMessage) chatMessageView {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(m.Text), &buf); err != nil {
		h.logger.Warn("render advisory markdown failed", "message_id", m.ID, "err", err)
		return chatMessageView{ChatMessage: m}
	}
	return chatMessageView{ChatMessage: m, HTML: buf.String()}
}

// Operation logs

func (h *handler) getOperationLogs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit, offset := normalizeLimitOffset(parseIntDefault(query.Get("limit"), defaultLogLimit), parseIntDefault(query.Get("offset"), 0))
	logs, err := h.core.GetOperationLogs(r.Context(), limit, offset)
	if err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	writeSuccess(w, operationLogsResponse{Items: logs, Limit: limit, Offset: offset})
}

// Helpers.

func parseIntDefault(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return i
}

func normalizeLimitOffset(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultLogLimit
	}
	if limit > maxLogLimit {
		limit = maxLogLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
