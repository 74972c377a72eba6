package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"beatmarket/internal/config"
	"beatmarket/internal/model"
	"beatmarket/internal/repository"
	"beatmarket/pkg/log"
	"beatmarket/pkg/metrics"
	"beatmarket/pkg/paystack"

	"gorm.io/gorm"
)

// PaymentGateway is the subset of the Paystack API used by the services.
type PaymentGateway interface {
	CreateSubaccount(ctx context.Context, req paystack.CreateSubaccountRequest) (*paystack.Subaccount, error)
	UpdateSubaccount(ctx context.Context, code string, req paystack.UpdateSubaccountRequest) (*paystack.Subaccount, error)
	CreateSplit(ctx context.Context, req paystack.CreateSplitRequest) (*paystack.Split, error)
	UpdateSplit(ctx context.Context, code string, req paystack.UpdateSplitRequest) (*paystack.Split, error)
	ListBanks(ctx context.Context, country string) ([]paystack.Bank, error)
	VerifyTransaction(ctx context.Context, reference string) (*paystack.Transaction, error)
}

// BankDetailsInput is the producer supplied settlement account.
type BankDetailsInput struct {
	BankCode            string `json:"bankCode"`
	AccountNumber       string `json:"accountNumber"`
	VerifiedAccountName string `json:"verifiedAccountName"`
}

// PaymentService manages the producer payment profile and its gateway side
// subaccount and split.
type PaymentService interface {
	GetProfile(ctx context.Context, producerID string) (*model.PaymentProfile, error)
	UpdateBankDetails(ctx context.Context, producerID string, in BankDetailsInput) (*model.PaymentProfile, error)
	ProvisionSubaccount(ctx context.Context, producerID string) (string, error)
	ProvisionSplit(ctx context.Context, producerID string) (string, error)
	// SetupPayments provisions the subaccount and then the split, skipping
	// whichever already exists.
	SetupPayments(ctx context.Context, producerID string) (*model.PaymentProfile, error)
	UpdateSplitShare(ctx context.Context, producerID string, share int) error
	ListBanks(ctx context.Context) ([]paystack.Bank, error)
}

type paymentService struct {
	users   repository.UserRepository
	locks   repository.LockRepository
	cache   repository.CacheRepository
	gateway PaymentGateway
	cfg     config.PaystackConfig
}

// NewPaymentService creates a PaymentService.
func NewPaymentService(users repository.UserRepository, locks repository.LockRepository, cache repository.CacheRepository, gateway PaymentGateway, cfg config.PaystackConfig) PaymentService {
	return &paymentService{
		users:   users,
		locks:   locks,
		cache:   cache,
		gateway: gateway,
		cfg:     cfg,
	}
}

func (s *paymentService) GetProfile(ctx context.Context, producerID string) (*model.PaymentProfile, error) {
	user, err := s.findProducer(ctx, producerID)
	if err != nil {
		return nil, err
	}
	profile := user.PaymentProfile()
	return &profile, nil
}

func (s *paymentService) UpdateBankDetails(ctx context.Context, producerID string, in BankDetailsInput) (*model.PaymentProfile, error) {
	in.BankCode = strings.TrimSpace(in.BankCode)
	in.AccountNumber = strings.TrimSpace(in.AccountNumber)
	in.VerifiedAccountName = strings.TrimSpace(in.VerifiedAccountName)
	if err := validateBankDetails(in); err != nil {
		return nil, err
	}

	release, err := s.lock(ctx, producerID)
	if err != nil {
		return nil, err
	}
	defer release()

	user, err := s.findProducer(ctx, producerID)
	if err != nil {
		return nil, err
	}

	// An existing subaccount settles to the old account until the gateway is told.
	if user.SubaccountCode != nil {
		_, err := s.gateway.UpdateSubaccount(ctx, *user.SubaccountCode, paystack.UpdateSubaccountRequest{
			SettlementBank: in.BankCode,
			AccountNumber:  in.AccountNumber,
		})
		if err != nil {
			log.Errorw("[PaymentService] subaccount update rejected", "producerId", producerID, "subaccountCode", *user.SubaccountCode, "error", err)
			return nil, gatewayError("update subaccount", err)
		}
	}

	if err := s.users.UpdateBankDetails(ctx, producerID, in.BankCode, in.AccountNumber, in.VerifiedAccountName); err != nil {
		if user.SubaccountCode != nil {
			return nil, s.inconsistent("update_subaccount", producerID, map[string]string{"subaccount_code": *user.SubaccountCode}, err)
		}
		return nil, fmt.Errorf("failed to save bank details: %w", err)
	}

	user.BankCode, user.AccountNumber, user.VerifiedAccountName = in.BankCode, in.AccountNumber, in.VerifiedAccountName
	log.Infow("[PaymentService] bank details updated", "producerId", producerID)
	profile := user.PaymentProfile()
	return &profile, nil
}

func (s *paymentService) ProvisionSubaccount(ctx context.Context, producerID string) (string, error) {
	release, err := s.lock(ctx, producerID)
	if err != nil {
		return "", err
	}
	defer release()

	user, err := s.findProducer(ctx, producerID)
	if err != nil {
		return "", err
	}
	return s.provisionSubaccount(ctx, user)
}

func (s *paymentService) ProvisionSplit(ctx context.Context, producerID string) (string, error) {
	release, err := s.lock(ctx, producerID)
	if err != nil {
		return "", err
	}
	defer release()

	user, err := s.findProducer(ctx, producerID)
	if err != nil {
		return "", err
	}
	return s.provisionSplit(ctx, user)
}

func (s *paymentService) SetupPayments(ctx context.Context, producerID string) (*model.PaymentProfile, error) {
	release, err := s.lock(ctx, producerID)
	if err != nil {
		return nil, err
	}
	defer release()

	user, err := s.findProducer(ctx, producerID)
	if err != nil {
		return nil, err
	}
	subaccountCode, err := s.provisionSubaccount(ctx, user)
	if err != nil {
		return nil, err
	}
	user.SubaccountCode = &subaccountCode

	splitCode, err := s.provisionSplit(ctx, user)
	if err != nil {
		return nil, err
	}
	user.SplitCode = &splitCode

	profile := user.PaymentProfile()
	return &profile, nil
}

// provisionSubaccount must run under the producer lock.
func (s *paymentService) provisionSubaccount(ctx context.Context, user *model.User) (string, error) {
	if user.SubaccountCode != nil && *user.SubaccountCode != "" {
		log.Infow("[PaymentService] subaccount already provisioned", "producerId", user.ID, "subaccountCode", *user.SubaccountCode)
		return *user.SubaccountCode, nil
	}
	if !user.HasBankDetails() {
		return "", newValidationError("bankDetails", "bank code, account number and verified account name are required")
	}

	sub, err := s.gateway.CreateSubaccount(ctx, paystack.CreateSubaccountRequest{
		BusinessName:     businessName(user),
		SettlementBank:   user.BankCode,
		AccountNumber:    user.AccountNumber,
		PercentageCharge: s.cfg.PlatformPercent,
	})
	if err != nil {
		log.Errorw("[PaymentService] subaccount creation rejected", "producerId", user.ID, "error", err)
		return "", gatewayError("create subaccount", err)
	}

	codes := map[string]string{"subaccount_code": sub.SubaccountCode}
	applied, err := s.users.SetSubaccountCode(ctx, user.ID, sub.SubaccountCode)
	if err != nil {
		return "", s.inconsistent("create_subaccount", user.ID, codes, err)
	}
	if !applied {
		return "", s.inconsistent("create_subaccount", user.ID, codes, errors.New("a subaccount code was already stored"))
	}

	log.Infow("[PaymentService] subaccount provisioned", "producerId", user.ID, "subaccountCode", sub.SubaccountCode)
	return sub.SubaccountCode, nil
}

// provisionSplit must run under the producer lock.
func (s *paymentService) provisionSplit(ctx context.Context, user *model.User) (string, error) {
	if user.SplitCode != nil && *user.SplitCode != "" {
		log.Infow("[PaymentService] split already provisioned", "producerId", user.ID, "splitCode", *user.SplitCode)
		return *user.SplitCode, nil
	}
	if user.SubaccountCode == nil || *user.SubaccountCode == "" {
		return "", newValidationError("subaccount", "a subaccount must be provisioned before the split")
	}
	subaccountCode := *user.SubaccountCode

	split, err := s.gateway.CreateSplit(ctx, paystack.CreateSplitRequest{
		Name:             fmt.Sprintf("%s revenue split", businessName(user)),
		Type:             "percentage",
		Currency:         s.cfg.Currency,
		Subaccounts:      []paystack.SplitShare{{Subaccount: subaccountCode, Share: s.cfg.ProducerSharePct}},
		BearerType:       "subaccount",
		BearerSubaccount: subaccountCode,
	})
	if err != nil {
		log.Errorw("[PaymentService] split creation rejected", "producerId", user.ID, "subaccountCode", subaccountCode, "error", err)
		return "", gatewayError("create split", err)
	}

	codes := map[string]string{"subaccount_code": subaccountCode, "split_code": split.SplitCode}
	applied, err := s.users.SetSplitCode(ctx, user.ID, split.SplitCode)
	if err != nil {
		return "", s.inconsistent("create_split", user.ID, codes, err)
	}
	if !applied {
		return "", s.inconsistent("create_split", user.ID, codes, errors.New("a split code was already stored"))
	}

	log.Infow("[PaymentService] split provisioned", "producerId", user.ID, "splitCode", split.SplitCode)
	return split.SplitCode, nil
}

func (s *paymentService) UpdateSplitShare(ctx context.Context, producerID string, share int) error {
	if share < 1 || share > 100 {
		return newValidationError("share", "share must be between 1 and 100")
	}
	user, err := s.findProducer(ctx, producerID)
	if err != nil {
		return err
	}
	if user.SplitCode == nil || user.SubaccountCode == nil {
		return newValidationError("split", "payment setup has not been completed")
	}

	_, err = s.gateway.UpdateSplit(ctx, *user.SplitCode, paystack.UpdateSplitRequest{
		Subaccounts: []paystack.SplitShare{{Subaccount: *user.SubaccountCode, Share: share}},
	})
	if err != nil {
		return gatewayError("update split", err)
	}
	log.Infow("[PaymentService] split share updated", "producerId", producerID, "splitCode", *user.SplitCode, "share", share)
	return nil
}

func (s *paymentService) ListBanks(ctx context.Context) ([]paystack.Bank, error) {
	key := "banks:" + s.cfg.BankCountry
	var banks []paystack.Bank
	hit, err := s.cache.GetJSON(ctx, key, &banks)
	if err != nil {
		log.Warnw("[PaymentService] bank list cache read failed", "error", err)
	}
	if hit {
		return banks, nil
	}

	banks, err = s.gateway.ListBanks(ctx, s.cfg.BankCountry)
	if err != nil {
		return nil, gatewayError("list banks", err)
	}
	if err := s.cache.SetJSON(ctx, key, banks, s.cfg.BankListCacheTTL); err != nil {
		log.Warnw("[PaymentService] bank list cache write failed", "error", err)
	}
	return banks, nil
}

// lock takes the provisioning lock of producerID.
func (s *paymentService) lock(ctx context.Context, producerID string) (func(), error) {
	release, ok, err := s.locks.Acquire(ctx, "provision:"+producerID, s.cfg.ProvisionLockTTL)
	if err != nil {
		return nil, &TransportError{Op: "acquire provisioning lock", Target: producerID, Err: err}
	}
	if !ok {
		return nil, ErrProvisioningInProgress
	}
	return release, nil
}

func (s *paymentService) findProducer(ctx context.Context, producerID string) (*model.User, error) {
	user, err := s.users.FindByID(ctx, producerID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("producer %s: %w", producerID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load producer %s: %w", producerID, err)
	}
	return user, nil
}

// inconsistent logs and counts a gateway mutation whose database write failed.
// Operators reconcile these by hand using the logged codes.
func (s *paymentService) inconsistent(op, producerID string, codes map[string]string, cause error) error {
	log.Errorw("[PaymentService] gateway mutation not persisted",
		"inconsistent_state", true,
		"operation", op,
		"producerId", producerID,
		"gatewayCodes", codes,
		"error", cause,
	)
	metrics.RecordInconsistentState(op)
	return &InconsistentStateError{Op: op, ProducerID: producerID, GatewayCodes: codes, Err: cause}
}

func validateBankDetails(in BankDetailsInput) error {
	if in.BankCode == "" {
		return newValidationError("bankCode", "bank code is required")
	}
	if in.VerifiedAccountName == "" {
		return newValidationError("verifiedAccountName", "verified account name is required")
	}
	if len(in.AccountNumber) != 10 || strings.IndexFunc(in.AccountNumber, func(r rune) bool { return !unicode.IsDigit(r) }) >= 0 {
		return newValidationError("accountNumber", "account number must be 10 digits")
	}
	return nil
}

func businessName(user *model.User) string {
	if user.DisplayName != "" {
		return user.DisplayName
	}
	return user.VerifiedAccountName
}

// gatewayError wraps a gateway failure, keeping the gateway's own message.
func gatewayError(op string, err error) error {
	var apiErr *paystack.APIError
	if errors.As(err, &apiErr) {
		return &TransportError{Op: op, GatewayMessage: apiErr.Message, Err: err}
	}
	return &TransportError{Op: op, Err: err}
}
