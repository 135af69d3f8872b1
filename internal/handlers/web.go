package handlers

import (
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"bankly/internal/auth"
	"bankly/internal/bank"
	"bankly/internal/models"

	"github.com/shopspring/decimal"
)

var kindLabels = map[string]string{
	string(models.Individual): "Individual",
	string(models.Company):    "Company",
	string(models.Withdraw):   "Withdraw",
	string(models.PayBill):    "Pay Bill",
	string(models.Transfer):   "Transfer Money",
}

var templateFuncs = template.FuncMap{
	"label": func(kind any) string {
		var s string
		switch k := kind.(type) {
		case models.AccountKind:
			s = string(k)
		case models.TransactionKind:
			s = string(k)
		case string:
			s = k
		}
		if l, ok := kindLabels[s]; ok {
			return l
		}
		return s
	},
}

// LoginViewModel holds data for the login page.
type LoginViewModel struct {
	User  *models.User // always nil; the layout reads it
	Error string
}

// AccountItem is an account as shown on the pages.
type AccountItem struct {
	ID      int64
	Kind    models.AccountKind
	Balance string
}

func newAccountItem(a models.Account) AccountItem {
	return AccountItem{ID: a.ID, Kind: a.Kind, Balance: a.Balance.StringFixed(2)}
}

// AccountsViewModel is the data passed to the accounts overview.
type AccountsViewModel struct {
	User          *models.User
	Accounts      []AccountItem
	Notifications []models.Notification
	Error         string
}

// StatementItem is one statement line, seen from the viewed account.
type StatementItem struct {
	ID           int64
	Kind         models.TransactionKind
	Amount       string
	Outgoing     bool
	Counterparty string
	Time         string
}

// AccountViewModel is the data passed to the single account page.
type AccountViewModel struct {
	User      *models.User
	Account   AccountItem
	Statement []StatementItem
	Kinds     []models.TransactionKind
	Error     string
}

// LoginForm renders the login page.
func (h *Handlers) LoginForm(w http.ResponseWriter, r *http.Request) {
	// If already logged in, redirect to accounts
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		if _, _, err := h.auth.Authenticate(r.Context(), cookie.Value); err == nil {
			http.Redirect(w, r, "/accounts", http.StatusFound)
			return
		}
	}
	h.render(w, r, "login.html", LoginViewModel{})
}

// Login handles the login form submission.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render(w, r, "login.html", LoginViewModel{Error: "Invalid form submission"})
		return
	}

	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")

	if username == "" || password == "" {
		h.render(w, r, "login.html", LoginViewModel{Error: "Username and password are required"})
		return
	}

	_, pair, err := h.auth.Login(r.Context(), username, password)
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			h.log.Error("failed to log in", "username", username, "error", err)
			h.render(w, r, "login.html", LoginViewModel{Error: "An error occurred. Please try again."})
			return
		}
		h.render(w, r, "login.html", LoginViewModel{Error: "Invalid username or password"})
		return
	}

	h.setSessionCookie(w, pair.Access)
	http.Redirect(w, r, "/accounts", http.StatusFound)
}

// Logout handles user logout.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	h.clearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusFound)
}

// AccountsPage renders the caller's accounts and unread notifications.
func (h *Handlers) AccountsPage(w http.ResponseWriter, r *http.Request) {
	h.renderAccounts(w, r, "")
}

func (h *Handlers) renderAccounts(w http.ResponseWriter, r *http.Request, formError string) {
	user := GetUserFromContext(r)

	accounts, err := h.queries.ListAccounts(r.Context(), user.ID)
	if err != nil {
		h.log.Error("failed to list accounts", "user_id", user.ID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	notes, err := h.notes.ListUnread(r.Context(), user.ID)
	if err != nil {
		h.log.Error("failed to list notifications", "user_id", user.ID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	vm := AccountsViewModel{User: user, Notifications: notes, Error: formError}
	for _, a := range accounts {
		vm.Accounts = append(vm.Accounts, newAccountItem(a))
	}
	if formError != "" {
		w.WriteHeader(http.StatusBadRequest)
	}
	h.render(w, r, "accounts.html", vm)
}

// OpenAccountForm handles the open-account form.
func (h *Handlers) OpenAccountForm(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	if err := r.ParseForm(); err != nil {
		h.renderAccounts(w, r, "Invalid form submission")
		return
	}

	if _, err := h.queries.OpenAccount(r.Context(), user.ID, models.AccountKind(r.FormValue("account_type"))); err != nil {
		h.renderAccounts(w, r, h.userMessage(r, err))
		return
	}
	http.Redirect(w, r, "/accounts", http.StatusSeeOther)
}

// AccountPage renders one account with its statement and a transaction form.
func (h *Handlers) AccountPage(w http.ResponseWriter, r *http.Request) {
	h.renderAccount(w, r, "")
}

func (h *Handlers) renderAccount(w http.ResponseWriter, r *http.Request, formError string) {
	user := GetUserFromContext(r)
	accountID, ok := pathID(r, "accountID")
	if !ok {
		http.Error(w, "Account not found", http.StatusNotFound)
		return
	}

	account, err := h.queries.Account(r.Context(), user.ID, accountID)
	if err != nil {
		var perr *bank.PermissionError
		if errors.As(err, &perr) {
			http.Error(w, "Account not found", http.StatusNotFound)
			return
		}
		h.log.Error("failed to load account", "account_id", accountID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	statement, err := h.queries.Statement(r.Context(), user.ID, accountID)
	if err != nil {
		h.log.Error("failed to load statement", "account_id", accountID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	vm := AccountViewModel{
		User:    user,
		Account: newAccountItem(*account),
		Kinds:   []models.TransactionKind{models.Withdraw, models.PayBill, models.Transfer},
		Error:   formError,
	}
	for _, t := range statement {
		vm.Statement = append(vm.Statement, newStatementItem(t, accountID))
	}
	if formError != "" {
		w.WriteHeader(http.StatusBadRequest)
	}
	h.render(w, r, "account.html", vm)
}

func newStatementItem(t models.Transaction, accountID int64) StatementItem {
	item := StatementItem{
		ID:       t.ID,
		Kind:     t.Kind,
		Amount:   t.Amount.StringFixed(2),
		Outgoing: t.SenderID == accountID,
		Time:     t.CreatedAt.Format("2006-01-02 15:04"),
	}
	switch {
	case !item.Outgoing:
		item.Counterparty = "#" + strconv.FormatInt(t.SenderID, 10)
	case t.RecipientID != nil:
		item.Counterparty = "#" + strconv.FormatInt(*t.RecipientID, 10)
	default:
		item.Counterparty = "Cash"
	}
	return item
}

// TransactionForm submits a transaction from the account page.
func (h *Handlers) TransactionForm(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	accountID, ok := pathID(r, "accountID")
	if !ok {
		http.Error(w, "Account not found", http.StatusNotFound)
		return
	}
	if err := r.ParseForm(); err != nil {
		h.renderAccount(w, r, "Invalid form submission")
		return
	}

	req := bank.TransactionRequest{
		SenderID: accountID,
		Kind:     models.TransactionKind(r.FormValue("transaction_type")),
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(r.FormValue("amount")))
	if err != nil {
		h.renderAccount(w, r, "A valid amount is required.")
		return
	}
	req.Amount = amount

	if raw := strings.TrimSpace(r.FormValue("recipient")); raw != "" {
		id, err := strconv.ParseInt(strings.TrimPrefix(raw, "#"), 10, 64)
		if err != nil {
			h.renderAccount(w, r, "Recipient must be an account number.")
			return
		}
		req.RecipientID = &id
	}

	if _, err := h.engine.CreateTransaction(r.Context(), user.ID, req); err != nil {
		h.renderAccount(w, r, h.userMessage(r, err))
		return
	}
	http.Redirect(w, r, "/accounts/"+strconv.FormatInt(accountID, 10), http.StatusSeeOther)
}

// ReadNotificationForm marks a notification read from the accounts page.
func (h *Handlers) ReadNotificationForm(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	id, ok := pathID(r, "notificationID")
	if !ok {
		http.Error(w, "Notification not found", http.StatusNotFound)
		return
	}

	if err := h.notes.MarkAsRead(r.Context(), user.ID, id); err != nil {
		if errors.Is(err, bank.ErrNoNotification) {
			http.Error(w, "Notification not found", http.StatusNotFound)
			return
		}
		h.log.Error("failed to mark notification read", "notification_id", id, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/accounts", http.StatusSeeOther)
}

// userMessage turns a service error into text for a form.
func (h *Handlers) userMessage(r *http.Request, err error) string {
	var (
		verr *bank.ValidationError
		perr *bank.PermissionError
		nerr *bank.NotFoundError
	)
	switch {
	case errors.As(err, &verr):
		return verr.Message
	case errors.As(err, &perr):
		return perr.Message
	case errors.As(err, &nerr):
		return nerr.Field + ": " + nerr.Message
	case errors.Is(err, bank.ErrLedgerBusy):
		return "The ledger is busy, please retry."
	}
	h.log.ErrorContext(r.Context(), "form submission failed", "path", r.URL.Path, "error", err)
	return "An error occurred. Please try again."
}
