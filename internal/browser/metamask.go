package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ligun0805/airdrop-claimer/internal/claimcore"
	"github.com/sirupsen/logrus"
)

// MetaMask UI hooks for the 11.x line. Kept in one place since they drift between releases.
var mm = struct {
	onboardTerms, onboardCreate, metricsNoThanks            string
	passwordNew, passwordConfirm, passwordTerms, passwordGo string
	secureLater, skipBackupCheck, skipBackup                string
	onboardDone, pinNext, pinDone                           string
	unlockPassword, unlockSubmit                            string
	accountMenu, addAccountAction, importKeyInput           string
	importConfirm, accountOptions, removeAccount            string
	netName, netRPC, netChainID, netSymbol, netExplorer     string
	networkDisplay                                          string
	footerNext, signButton, confirmFooter, scrollDown       string
}{
	onboardTerms:     "onboarding-terms-checkbox",
	onboardCreate:    "onboarding-create-wallet",
	metricsNoThanks:  "metametrics-no-thanks",
	passwordNew:      "create-password-new",
	passwordConfirm:  "create-password-confirm",
	passwordTerms:    "create-password-terms",
	passwordGo:       "create-password-wallet",
	secureLater:      "secure-wallet-later",
	skipBackupCheck:  "skip-srp-backup-popover-checkbox",
	skipBackup:       "skip-srp-backup",
	onboardDone:      "onboarding-complete-done",
	pinNext:          "pin-extension-next",
	pinDone:          "pin-extension-done",
	unlockPassword:   "unlock-password",
	unlockSubmit:     "unlock-submit",
	accountMenu:      "account-menu-icon",
	addAccountAction: "multichain-account-menu-popover-action-button",
	importKeyInput:   "#private-key-box",
	importConfirm:    "import-account-confirm-button",
	accountOptions:   "account-list-item-menu-button",
	removeAccount:    "account-list-menu-remove",
	netName:          "network-form-network-name",
	netRPC:           "network-form-rpc-url",
	netChainID:       "network-form-chain-id",
	netSymbol:        "network-form-ticker-input",
	netExplorer:      "network-form-block-explorer-url",
	networkDisplay:   "network-display",
	footerNext:       "page-container-footer-next",
	signButton:       "signature-sign-button",
	confirmFooter:    "confirm-footer-button",
	scrollDown:       "signature-request-scroll-button",
}

const (
	stepTimeout    = 10 * time.Second
	pendingTimeout = 5 * time.Second
)

var errStep = errors.New("wallet ui step not found")

// MetaMask drives the extension UI from its own tab.
type MetaMask struct {
	tab
	extensionID string
	password    string
	log         logrus.FieldLogger
}

func (m *MetaMask) url(page string) string {
	return "chrome-extension://" + m.extensionID + "/" + page
}

func (m *MetaMask) home(ctx context.Context, fragment string) error {
	return m.navigate(ctx, stepTimeout*3, m.url("home.html")+fragment)
}

// click fails when none of ids appears in time.
func (m *MetaMask) click(ctx context.Context, ids ...string) error {
	ok, err := m.poll(ctx, stepTimeout, clickTestIDJS(ids...))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %v", errStep, ids)
	}
	return nil
}

// tryClick is click for optional steps.
func (m *MetaMask) tryClick(ctx context.Context, timeout time.Duration, ids ...string) bool {
	ok, _ := m.poll(ctx, timeout, clickTestIDJS(ids...))
	return ok
}

func (m *MetaMask) clickText(ctx context.Context, tags []string, texts ...string) error {
	ok, err := m.poll(ctx, stepTimeout, clickByTextJS(texts, tags))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %v", errStep, texts)
	}
	return nil
}

func (m *MetaMask) fill(ctx context.Context, selector, value string) error {
	ok, err := m.poll(ctx, stepTimeout, setValueJS(selector, value))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", errStep, selector)
	}
	return nil
}

// Onboard creates a throwaway vault protected by the configured password.
func (m *MetaMask) Onboard(ctx context.Context) error {
	if err := m.home(ctx, "#onboarding/welcome"); err != nil {
		return err
	}
	steps := []func() error{
		func() error { return m.click(ctx, mm.onboardTerms) },
		func() error { return m.click(ctx, mm.onboardCreate) },
		func() error { return m.click(ctx, mm.metricsNoThanks) },
		func() error { return m.fill(ctx, testID(mm.passwordNew), m.password) },
		func() error { return m.fill(ctx, testID(mm.passwordConfirm), m.password) },
		func() error { return m.click(ctx, mm.passwordTerms) },
		func() error { return m.click(ctx, mm.passwordGo) },
		func() error { return m.click(ctx, mm.secureLater) },
		func() error { return m.click(ctx, mm.skipBackupCheck) },
		func() error { return m.click(ctx, mm.skipBackup) },
		func() error { return m.click(ctx, mm.onboardDone) },
	}
	for i, step := range steps {
		if err := step(); err != nil {
			return fmt.Errorf("onboarding step %d: %w", i+1, err)
		}
	}
	m.tryClick(ctx, pendingTimeout, mm.pinNext)
	m.tryClick(ctx, pendingTimeout, mm.pinDone)
	m.log.Debug("wallet onboarded")
	return nil
}

// unlock enters the password if the vault is locked.
func (m *MetaMask) unlock(ctx context.Context) {
	ok, _ := m.poll(ctx, 2*time.Second, setValueJS(testID(mm.unlockPassword), m.password))
	if ok {
		m.tryClick(ctx, stepTimeout, mm.unlockSubmit)
	}
}

func (m *MetaMask) AddNetwork(ctx context.Context, n claimcore.Network) error {
	if err := m.home(ctx, "#settings/networks/add-network"); err != nil {
		return err
	}
	m.unlock(ctx)
	chainID := ""
	if n.ChainID != nil {
		chainID = n.ChainID.String()
	}
	fields := []struct{ id, value string }{
		{mm.netName, n.Name},
		{mm.netRPC, n.RPCURL},
		{mm.netChainID, chainID},
		{mm.netSymbol, n.Symbol},
		{mm.netExplorer, n.Explorer},
	}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		if err := m.fill(ctx, testID(f.id), f.value); err != nil {
			return fmt.Errorf("add network %s: %w", n.Name, err)
		}
	}
	if err := m.clickText(ctx, []string{"button"}, "save"); err != nil {
		return fmt.Errorf("add network %s: %w", n.Name, err)
	}
	// MetaMask offers to switch right away; SwitchNetwork covers the case where it does not.
	_, _ = m.poll(ctx, pendingTimeout, clickByTextJS([]string{"switch to " + n.Name}, []string{"button"}))
	return nil
}

func (m *MetaMask) SwitchNetwork(ctx context.Context, name string) error {
	if err := m.home(ctx, ""); err != nil {
		return err
	}
	m.unlock(ctx)
	if err := m.click(ctx, mm.networkDisplay); err != nil {
		return fmt.Errorf("switch network %s: %w", name, err)
	}
	if err := m.clickText(ctx, []string{"[role=button]", "button", "p", "span"}, name); err != nil {
		return fmt.Errorf("switch network %s: %w", name, err)
	}
	return nil
}

func (m *MetaMask) ImportKey(ctx context.Context, hexKey string) error {
	if err := m.home(ctx, ""); err != nil {
		return err
	}
	m.unlock(ctx)
	steps := []func() error{
		func() error { return m.click(ctx, mm.accountMenu) },
		func() error { return m.click(ctx, mm.addAccountAction) },
		func() error { return m.clickText(ctx, []string{"button"}, "import account") },
		func() error { return m.fill(ctx, mm.importKeyInput, hexKey) },
		func() error { return m.click(ctx, mm.importConfirm) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return fmt.Errorf("import key: %w", err)
		}
	}
	return nil
}

// confirmPending clicks through whatever confirmation is queued in notification.html.
func (m *MetaMask) confirmPending(ctx context.Context, ids ...string) (bool, error) {
	if err := m.navigate(ctx, stepTimeout*3, m.url("notification.html")); err != nil {
		return false, err
	}
	clicked := false
	for i := 0; i < 3; i++ {
		ok, err := m.poll(ctx, pendingTimeout, clickTestIDJS(ids...))
		if err != nil {
			return clicked, err
		}
		if !ok {
			break
		}
		clicked = true
	}
	return clicked, nil
}

// Approve confirms a pending connection request (Next, then Connect).
func (m *MetaMask) Approve(ctx context.Context) (bool, error) {
	return m.confirmPending(ctx, mm.footerNext, mm.confirmFooter)
}

// Sign confirms a pending signature request.
func (m *MetaMask) Sign(ctx context.Context) (bool, error) {
	m.tryClick(ctx, time.Second, mm.scrollDown)
	return m.confirmPending(ctx, mm.signButton, mm.confirmFooter, mm.footerNext)
}

// ForgetAccount removes the imported account so it does not linger in the profile.
func (m *MetaMask) ForgetAccount(ctx context.Context, addr common.Address) error {
	if err := m.home(ctx, ""); err != nil {
		return err
	}
	m.unlock(ctx)
	steps := []func() error{
		func() error { return m.click(ctx, mm.accountMenu) },
		func() error { return m.click(ctx, mm.accountOptions) },
		func() error { return m.click(ctx, mm.removeAccount) },
		func() error { return m.clickText(ctx, []string{"button"}, "remove") },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return fmt.Errorf("forget %s: %w", addr.Hex(), err)
		}
	}
	return nil
}

var _ claimcore.Wallet = (*MetaMask)(nil)
