package e2e

import (
	"strconv"
	"strings"
	"testing"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// E2ETestSuite provides a test suite for end-to-end tests
type E2ETestSuite struct {
	suite.Suite
	pw      *playwright.Playwright
	browser playwright.Browser
	page    playwright.Page
	expect  playwright.PlaywrightAssertions
}

// SetupSuite runs once before all tests
func (suite *E2ETestSuite) SetupSuite() {
	pw, err := playwright.Run()
	require.NoError(suite.T(), err, "could not launch playwright")
	suite.pw = pw

	browser, err := pw.Chromium.Launch()
	require.NoError(suite.T(), err, "could not launch chromium")
	suite.browser = browser

	suite.expect = playwright.NewPlaywrightAssertions()
}

// TearDownSuite runs once after all tests
func (suite *E2ETestSuite) TearDownSuite() {
	if suite.browser != nil {
		suite.browser.Close()
	}
	if suite.pw != nil {
		suite.pw.Stop()
	}
}

func (suite *E2ETestSuite) SetupTest() {
	page, err := suite.browser.NewPage()
	require.NoError(suite.T(), err, "could not create page")
	suite.page = page

	_, err = suite.page.Goto(appURL)
	require.NoError(suite.T(), err, "could not navigate to app")
}

func (suite *E2ETestSuite) TearDownTest() {
	if suite.page != nil {
		suite.page.Close()
	}
}

func (suite *E2ETestSuite) login() {
	err := suite.expect.Locator(suite.page.Locator(".login-form")).ToBeVisible()
	require.NoError(suite.T(), err, "login form not visible")

	err = suite.page.Locator("input[name=username]").Fill("testuser")
	require.NoError(suite.T(), err, "failed to fill username")

	err = suite.page.Locator("input[name=password]").Fill("testpass123")
	require.NoError(suite.T(), err, "failed to fill password")

	err = suite.page.Locator(".login-btn").Click()
	require.NoError(suite.T(), err, "failed to click login")

	err = suite.expect.Locator(suite.page.Locator(".accounts-screen")).ToBeVisible()
	require.NoError(suite.T(), err, "did not redirect to accounts page after login")
}

// submit fills the transaction form on the account page and sends it.
func (suite *E2ETestSuite) submit(kind, amount string) {
	_, err := suite.page.Locator("select[name=transaction_type]").SelectOption(playwright.SelectOptionValues{
		Values: &[]string{kind},
	})
	require.NoError(suite.T(), err, "failed to select transaction type")

	err = suite.page.Locator("input[name=amount]").Fill(amount)
	require.NoError(suite.T(), err, "failed to fill amount")

	err = suite.page.Locator("button.submit").Click()
	require.NoError(suite.T(), err, "failed to submit transaction")
}

func (suite *E2ETestSuite) TestCompleteUserFlow() {
	suite.login()

	// Open an individual account
	_, err := suite.page.Locator("select[name=account_type]").SelectOption(playwright.SelectOptionValues{
		Values: &[]string{"individual"},
	})
	require.NoError(suite.T(), err, "failed to select account type")
	err = suite.page.Locator(".open-account-btn").Click()
	require.NoError(suite.T(), err, "failed to open account")

	err = suite.expect.Locator(suite.page.Locator(".account-item")).ToHaveCount(1)
	require.NoError(suite.T(), err, "account item count mismatch")
	err = suite.expect.Locator(suite.page.Locator(".account-balance")).ToContainText("0.00")
	require.NoError(suite.T(), err, "new account should be empty")

	err = suite.page.Locator(".account-item a").First().Click()
	require.NoError(suite.T(), err, "failed to open account page")
	err = suite.expect.Locator(suite.page.Locator("#transaction-form")).ToBeVisible()
	require.NoError(suite.T(), err, "transaction form not visible")

	parts := strings.Split(strings.TrimRight(suite.page.URL(), "/"), "/")
	accountID, err := strconv.ParseInt(parts[len(parts)-1], 10, 64)
	require.NoError(suite.T(), err, "account page url should end in the account id")

	// An empty account cannot withdraw
	suite.submit("withdraw", "10")
	err = suite.expect.Locator(suite.page.Locator(".form-error")).ToHaveText(
		"sender must have sufficient balance to perform the transaction.")
	require.NoError(suite.T(), err, "expected insufficient balance error")

	// Fund it out of band, then withdraw for real
	require.NoError(suite.T(), setBalance(accountID, "100"))

	_, err = suite.page.Goto(appURL + "/accounts/" + strconv.FormatInt(accountID, 10))
	require.NoError(suite.T(), err, "failed to reload account page")
	err = suite.expect.Locator(suite.page.Locator("#balance")).ToHaveText("100.00")
	require.NoError(suite.T(), err, "balance after funding mismatch")

	suite.submit("withdraw", "25")
	err = suite.expect.Locator(suite.page.Locator("#balance")).ToHaveText("75.00")
	require.NoError(suite.T(), err, "balance after withdraw mismatch")
	err = suite.expect.Locator(suite.page.Locator(".statement-item")).ToHaveCount(1)
	require.NoError(suite.T(), err, "statement item count mismatch")
	err = suite.expect.Locator(suite.page.Locator(".statement-amount").First()).ToHaveText("-25.00")
	require.NoError(suite.T(), err, "statement amount mismatch")

	// The withdrawal left a notification on the overview
	_, err = suite.page.Goto(appURL + "/accounts")
	require.NoError(suite.T(), err, "failed to navigate to accounts")
	err = suite.expect.Locator(suite.page.Locator(".notification-message")).ToHaveText("You sent 25.00 EGP in a transaction.")
	require.NoError(suite.T(), err, "notification mismatch")

	err = suite.page.Locator(".mark-read-btn").First().Click()
	require.NoError(suite.T(), err, "failed to mark notification read")
	err = suite.expect.Locator(suite.page.Locator(".notification-item")).ToHaveCount(0)
	require.NoError(suite.T(), err, "notification should disappear once read")
}

// TestE2ESuite runs the e2e test suite
func TestE2ESuite(t *testing.T) {
	suite.Run(t, new(E2ETestSuite))
}
