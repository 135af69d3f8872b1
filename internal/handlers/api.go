package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"bankly/internal/auth"
	"bankly/internal/bank"
)

const fieldRequired = "This field is required."

// decodeJSON reads a JSON body into v. An empty body leaves v untouched.
func decodeJSON(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func (h *Handlers) badJSON(w http.ResponseWriter, r *http.Request, err error) {
	h.log.WarnContext(r.Context(), "error while decoding request body", "path", r.URL.Path, "error", err)
	respondDetail(w, http.StatusBadRequest, "JSON parse error - "+err.Error())
}

// Register creates a user account.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		h.badJSON(w, r, err)
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	errs := fieldErrors{}
	if req.Username == "" {
		errs.add("username", fieldRequired)
	}
	if req.Password == "" {
		errs.add("password", fieldRequired)
	}
	if len(errs) > 0 {
		respondJSON(w, http.StatusBadRequest, errs)
		return
	}

	user, err := h.auth.Register(r.Context(), req.Username, strings.TrimSpace(req.Email), req.Password)
	if errors.Is(err, auth.ErrUsernameTaken) {
		respondJSON(w, http.StatusBadRequest, fieldErrors{"username": {"A user with that username already exists."}})
		return
	}
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.log.InfoContext(r.Context(), "user registered", "user_id", user.ID)
	respondJSON(w, http.StatusCreated, userResponse{ID: user.ID, Username: user.Username, Email: user.Email})
}

// Token exchanges credentials for an access/refresh token pair.
func (h *Handlers) Token(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := decodeJSON(r, &req); err != nil {
		h.badJSON(w, r, err)
		return
	}

	errs := fieldErrors{}
	if req.Username == "" {
		errs.add("username", fieldRequired)
	}
	if req.Password == "" {
		errs.add("password", fieldRequired)
	}
	if len(errs) > 0 {
		respondJSON(w, http.StatusBadRequest, errs)
		return
	}

	_, pair, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		respondDetail(w, http.StatusUnauthorized, "No active account found with the given credentials")
		return
	}
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, pair)
}

// RefreshToken issues a new access token from a refresh token.
func (h *Handlers) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		h.badJSON(w, r, err)
		return
	}
	if req.Refresh == "" {
		respondJSON(w, http.StatusBadRequest, fieldErrors{"refresh": {fieldRequired}})
		return
	}

	access, err := h.auth.Refresh(r.Context(), req.Refresh)
	if errors.Is(err, auth.ErrInvalidToken) {
		respondDetail(w, http.StatusUnauthorized, "Token is invalid or expired")
		return
	}
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, accessResponse{Access: access})
}

// CreateAccount opens an account for the caller.
func (h *Handlers) CreateAccount(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)

	var req accountRequest
	if err := decodeJSON(r, &req); err != nil {
		h.badJSON(w, r, err)
		return
	}

	account, err := h.queries.OpenAccount(r.Context(), user.ID, req.AccountType)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.log.InfoContext(r.Context(), "account opened", "user_id", user.ID, "account_id", account.ID, "kind", account.Kind)
	respondJSON(w, http.StatusCreated, accountCreatedResponse{ID: account.ID, AccountType: account.Kind})
}

// ListAccounts lists the caller's accounts.
func (h *Handlers) ListAccounts(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)

	accounts, err := h.queries.ListAccounts(r.Context(), user.ID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	resp := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		resp = append(resp, newAccountResponse(a))
	}
	respondJSON(w, http.StatusOK, resp)
}

// CreateTransaction submits a money movement to the transaction engine.
func (h *Handlers) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)

	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		h.badJSON(w, r, err)
		return
	}

	errs := fieldErrors{}
	if req.Sender == nil {
		errs.add("sender", fieldRequired)
	}
	if req.Amount == nil {
		errs.add("amount", fieldRequired)
	}
	if len(errs) > 0 {
		respondJSON(w, http.StatusBadRequest, errs)
		return
	}

	txn, err := h.engine.CreateTransaction(r.Context(), user.ID, bank.TransactionRequest{
		SenderID:    *req.Sender,
		RecipientID: req.Recipient,
		Kind:        req.TransactionType,
		Amount:      *req.Amount,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.log.InfoContext(r.Context(), "transaction created",
		"transaction_id", txn.ID, "kind", txn.Kind, "sender", txn.SenderID, "amount", txn.Amount.StringFixed(2))
	respondJSON(w, http.StatusCreated, newTransactionResponse(*txn))
}

// Statement lists the transactions of one of the caller's accounts.
func (h *Handlers) Statement(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	accountID, ok := pathID(r, "accountID")
	if !ok {
		h.respondError(w, r, bank.ErrStatementForbidden)
		return
	}

	statement, err := h.queries.Statement(r.Context(), user.ID, accountID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	resp := make([]transactionResponse, 0, len(statement))
	for _, t := range statement {
		resp = append(resp, newTransactionResponse(t))
	}
	respondJSON(w, http.StatusOK, resp)
}

// UnreadNotifications lists the caller's unread notifications, oldest first.
func (h *Handlers) UnreadNotifications(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)

	notes, err := h.notes.ListUnread(r.Context(), user.ID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	resp := make([]notificationResponse, 0, len(notes))
	for _, n := range notes {
		resp = append(resp, newNotificationResponse(n))
	}
	respondJSON(w, http.StatusOK, resp)
}

// MarkNotificationRead marks one of the caller's notifications as read.
func (h *Handlers) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	id, ok := pathID(r, "notificationID")
	if !ok {
		h.respondError(w, r, bank.ErrNoNotification)
		return
	}

	if err := h.notes.MarkAsRead(r.Context(), user.ID, id); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteNotification removes one of the caller's notifications.
func (h *Handlers) DeleteNotification(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	id, ok := pathID(r, "notificationID")
	if !ok {
		h.respondError(w, r, bank.ErrNoNotification)
		return
	}

	if err := h.notes.Delete(r.Context(), user.ID, id); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
