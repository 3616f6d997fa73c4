package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/ledgerline/receipt-backoffice/internal/apperrors"
	"github.com/ledgerline/receipt-backoffice/internal/core/domain"
	portsrepo "github.com/ledgerline/receipt-backoffice/internal/core/ports/repositories"
	portssvc "github.com/ledgerline/receipt-backoffice/internal/core/ports/services"
	"github.com/ledgerline/receipt-backoffice/internal/core/services"
	"github.com/ledgerline/receipt-backoffice/internal/dto"
)

// --- Mock TransactionRepository ---
type MockTransactionRepository struct {
	mock.Mock
}

var _ portsrepo.TransactionRepositoryFacade = (*MockTransactionRepository)(nil)

func (m *MockTransactionRepository) FindTransactionByID(ctx context.Context, tenantID string, transactionID string) (*domain.Transaction, error) {
	args := m.Called(ctx, tenantID, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) ListTransactions(ctx context.Context, tenantID string, filter portsrepo.ListTransactionsFilter) ([]domain.Transaction, *string, error) {
	args := m.Called(ctx, tenantID, filter)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	var nextToken *string
	if args.Get(1) != nil {
		tokenVal := args.Get(1).(string)
		nextToken = &tokenVal
	}
	return args.Get(0).([]domain.Transaction), nextToken, args.Error(2)
}

func (m *MockTransactionRepository) FindTransactionsByGroupID(ctx context.Context, tenantID string, groupID string) ([]domain.Transaction, error) {
	args := m.Called(ctx, tenantID, groupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) GetTrialBalance(ctx context.Context, tenantID string, from *time.Time, to *time.Time) ([]domain.TrialBalanceRow, error) {
	args := m.Called(ctx, tenantID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.TrialBalanceRow), args.Error(1)
}

func (m *MockTransactionRepository) CountPostedWithoutLedgerRef(ctx context.Context, tenantID string) (int64, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTransactionRepository) SaveTransaction(ctx context.Context, txn domain.Transaction) error {
	args := m.Called(ctx, txn)
	return args.Error(0)
}

func (m *MockTransactionRepository) UpdateDraft(ctx context.Context, txn domain.Transaction) error {
	args := m.Called(ctx, txn)
	return args.Error(0)
}

func (m *MockTransactionRepository) DeleteDraft(ctx context.Context, tenantID string, transactionID string) error {
	args := m.Called(ctx, tenantID, transactionID)
	return args.Error(0)
}

func (m *MockTransactionRepository) MarkSubmitted(ctx context.Context, tenantID string, transactionID string, userID string, now time.Time) error {
	args := m.Called(ctx, tenantID, transactionID, userID, now)
	return args.Error(0)
}

func (m *MockTransactionRepository) MarkPosted(ctx context.Context, tenantID string, transactionID string, approverID string, now time.Time) error {
	args := m.Called(ctx, tenantID, transactionID, approverID, now)
	return args.Error(0)
}

func (m *MockTransactionRepository) VoidWithReversal(ctx context.Context, original domain.Transaction, reversal domain.Transaction, reason string, userID string, now time.Time) error {
	args := m.Called(ctx, original, reversal, reason, userID, now)
	return args.Error(0)
}

func (m *MockTransactionRepository) SaveSplitGroup(ctx context.Context, entries []domain.Transaction, documentID string, userID string, now time.Time) error {
	args := m.Called(ctx, entries, documentID, userID, now)
	return args.Error(0)
}

func (m *MockTransactionRepository) SetLedgerReference(ctx context.Context, tenantID string, transactionID string, ref string, userID string, now time.Time) error {
	args := m.Called(ctx, tenantID, transactionID, ref, userID, now)
	return args.Error(0)
}

// --- Mock DocumentRepository ---
type MockDocumentRepository struct {
	mock.Mock
}

var _ portsrepo.DocumentRepositoryFacade = (*MockDocumentRepository)(nil)

func (m *MockDocumentRepository) FindDocumentByID(ctx context.Context, tenantID string, documentID string) (*domain.SourceDocument, error) {
	args := m.Called(ctx, tenantID, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SourceDocument), args.Error(1)
}

func (m *MockDocumentRepository) SaveDocument(ctx context.Context, doc domain.SourceDocument) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockDocumentRepository) LinkTransaction(ctx context.Context, tenantID string, documentID string, transactionID string, userID string, now time.Time) error {
	args := m.Called(ctx, tenantID, documentID, transactionID, userID, now)
	return args.Error(0)
}

// --- Mock LedgerSvc ---
type MockLedger struct {
	mock.Mock
}

var _ portssvc.LedgerSvc = (*MockLedger)(nil)

func (m *MockLedger) RecordEntry(ctx context.Context, entry domain.LedgerEntry) (*domain.LedgerRef, error) {
	args := m.Called(ctx, entry)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LedgerRef), args.Error(1)
}

func (m *MockLedger) ReverseEntry(ctx context.Context, journalID string) error {
	args := m.Called(ctx, journalID)
	return args.Error(0)
}

func (m *MockLedger) GetBalance(ctx context.Context, account string) (domain.Money, error) {
	args := m.Called(ctx, account)
	return args.Get(0).(domain.Money), args.Error(1)
}

// --- Test Suite Setup ---
type TransactionServiceTestSuite struct {
	suite.Suite
	mockTxnRepo *MockTransactionRepository
	mockDocRepo *MockDocumentRepository
	mockLedger  *MockLedger
	service     portssvc.TransactionSvcFacade
	tenantID    string
	userID      string
	ctx         context.Context
}

func (suite *TransactionServiceTestSuite) SetupTest() {
	suite.mockTxnRepo = new(MockTransactionRepository)
	suite.mockDocRepo = new(MockDocumentRepository)
	suite.mockLedger = new(MockLedger)
	suite.service = services.NewTransactionService(suite.mockTxnRepo, suite.mockDocRepo, services.WithLedger(suite.mockLedger))
	suite.tenantID = uuid.NewString()
	suite.userID = uuid.NewString()
	suite.ctx = context.Background()
}

func (suite *TransactionServiceTestSuite) validCreateRequest() dto.CreateTransactionRequest {
	return dto.CreateTransactionRequest{
		DebitAccount:  "6001",
		CreditAccount: "1001",
		Amount:        "10.50",
		Description:   "Office supplies",
		BusinessDate:  time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
	}
}

func (suite *TransactionServiceTestSuite) TestCreateDraftSuccess() {
	req := suite.validCreateRequest()
	suite.mockTxnRepo.On("SaveTransaction", suite.ctx, mock.AnythingOfType("domain.Transaction")).Return(nil).Once()

	txn, err := suite.service.CreateDraft(suite.ctx, suite.tenantID, req, suite.userID)

	suite.NoError(err)
	suite.NotNil(txn)
	suite.Equal(domain.StatusDraft, txn.Status)
	suite.Equal(domain.Money(1050), txn.Amount)
	suite.Equal(suite.userID, txn.CreatedBy)
	suite.mockTxnRepo.AssertExpectations(suite.T())
}

func (suite *TransactionServiceTestSuite) TestCreateDraftRejectsSameAccount() {
	req := suite.validCreateRequest()
	req.CreditAccount = req.DebitAccount

	txn, err := suite.service.CreateDraft(suite.ctx, suite.tenantID, req, suite.userID)

	suite.Nil(txn)
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.mockTxnRepo.AssertNotCalled(suite.T(), "SaveTransaction")
}

func (suite *TransactionServiceTestSuite) TestCreateDraftRejectsNonPositiveAmount() {
	for _, amount := range []string{"0", "-5.00"} {
		req := suite.validCreateRequest()
		req.Amount = amount

		txn, err := suite.service.CreateDraft(suite.ctx, suite.tenantID, req, suite.userID)

		suite.Nil(txn)
		suite.ErrorIs(err, apperrors.ErrValidation)
	}
	suite.mockTxnRepo.AssertNotCalled(suite.T(), "SaveTransaction")
}

func (suite *TransactionServiceTestSuite) TestCreateDraftRejectsExcessPrecision() {
	req := suite.validCreateRequest()
	req.Amount = "10.505"

	txn, err := suite.service.CreateDraft(suite.ctx, suite.tenantID, req, suite.userID)

	suite.Nil(txn)
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *TransactionServiceTestSuite) TestCreateDraftRejectsUnknownSourceDocument() {
	req := suite.validCreateRequest()
	docID := uuid.NewString()
	req.SourceDocumentID = &docID
	suite.mockDocRepo.On("FindDocumentByID", suite.ctx, suite.tenantID, docID).Return(nil, apperrors.ErrNotFound).Once()

	txn, err := suite.service.CreateDraft(suite.ctx, suite.tenantID, req, suite.userID)

	suite.Nil(txn)
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.mockTxnRepo.AssertNotCalled(suite.T(), "SaveTransaction")
}

func (suite *TransactionServiceTestSuite) postedTransaction() *domain.Transaction {
	ref := "journal-77"
	posting := time.Date(2026, 3, 16, 9, 0, 0, 0, time.UTC)
	return &domain.Transaction{
		TransactionID:    uuid.NewString(),
		TenantID:         suite.tenantID,
		DebitAccount:     "6001",
		CreditAccount:    "1001",
		Amount:           domain.Money(1050),
		Description:      "Office supplies",
		BusinessDate:     time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		PostingDate:      &posting,
		Status:           domain.StatusPosted,
		LedgerJournalRef: &ref,
	}
}

func (suite *TransactionServiceTestSuite) TestUpdateDraftRejectsPostedTransaction() {
	posted := suite.postedTransaction()
	suite.mockTxnRepo.On("FindTransactionByID", suite.ctx, suite.tenantID, posted.TransactionID).Return(posted, nil).Once()

	desc := "tampering attempt"
	txn, err := suite.service.UpdateDraft(suite.ctx, suite.tenantID, posted.TransactionID, dto.UpdateTransactionRequest{Description: &desc}, suite.userID)

	suite.Nil(txn)
	suite.ErrorIs(err, apperrors.ErrStateConflict)
	suite.mockTxnRepo.AssertNotCalled(suite.T(), "UpdateDraft")
}

func (suite *TransactionServiceTestSuite) TestDeleteDraftRejectsPostedTransaction() {
	posted := suite.postedTransaction()
	suite.mockTxnRepo.On("FindTransactionByID", suite.ctx, suite.tenantID, posted.TransactionID).Return(posted, nil).Once()

	err := suite.service.DeleteDraft(suite.ctx, suite.tenantID, posted.TransactionID, suite.userID)

	suite.ErrorIs(err, apperrors.ErrStateConflict)
	suite.mockTxnRepo.AssertNotCalled(suite.T(), "DeleteDraft")
}

func (suite *TransactionServiceTestSuite) TestSubmitForApproval() {
	submitted := suite.postedTransaction()
	submitted.Status = domain.StatusPendingApproval
	submitted.PostingDate = nil
	submitted.LedgerJournalRef = nil
	suite.mockTxnRepo.On("MarkSubmitted", suite.ctx, suite.tenantID, submitted.TransactionID, suite.userID, mock.AnythingOfType("time.Time")).Return(nil).Once()
	suite.mockTxnRepo.On("FindTransactionByID", suite.ctx, suite.tenantID, submitted.TransactionID).Return(submitted, nil).Once()

	txn, err := suite.service.SubmitForApproval(suite.ctx, suite.tenantID, submitted.TransactionID, suite.userID)

	suite.NoError(err)
	suite.Equal(domain.StatusPendingApproval, txn.Status)
	suite.mockTxnRepo.AssertExpectations(suite.T())
}

func (suite *TransactionServiceTestSuite) TestSubmitForApprovalConflictOnNonDraft() {
	transactionID := uuid.NewString()
	suite.mockTxnRepo.On("MarkSubmitted", suite.ctx, suite.tenantID, transactionID, suite.userID, mock.AnythingOfType("time.Time")).Return(apperrors.ErrStateConflict).Once()

	txn, err := suite.service.SubmitForApproval(suite.ctx, suite.tenantID, transactionID, suite.userID)

	suite.Nil(txn)
	suite.ErrorIs(err, apperrors.ErrStateConflict)
}

func (suite *TransactionServiceTestSuite) TestApprovePostsAndShadowPosts() {
	draft := suite.postedTransaction()
	draft.LedgerJournalRef = nil

	suite.mockTxnRepo.On("MarkPosted", suite.ctx, suite.tenantID, draft.TransactionID, suite.userID, mock.AnythingOfType("time.Time")).Return(nil).Once()
	suite.mockTxnRepo.On("FindTransactionByID", suite.ctx, suite.tenantID, draft.TransactionID).Return(draft, nil).Once()
	suite.mockLedger.On("RecordEntry", suite.ctx, mock.MatchedBy(func(entry domain.LedgerEntry) bool {
		return entry.Entries[draft.DebitAccount] == draft.Amount && entry.Entries[draft.CreditAccount] == draft.Amount.Neg()
	})).Return(&domain.LedgerRef{JournalID: "journal-88"}, nil).Once()
	suite.mockTxnRepo.On("SetLedgerReference", suite.ctx, suite.tenantID, draft.TransactionID, "journal-88", suite.userID, mock.AnythingOfType("time.Time")).Return(nil).Once()

	txn, err := suite.service.Approve(suite.ctx, suite.tenantID, draft.TransactionID, suite.userID)

	suite.NoError(err)
	suite.NotNil(txn)
	suite.NotNil(txn.LedgerJournalRef)
	suite.Equal("journal-88", *txn.LedgerJournalRef)
	suite.mockTxnRepo.AssertExpectations(suite.T())
	suite.mockLedger.AssertExpectations(suite.T())
}

func (suite *TransactionServiceTestSuite) TestApproveSurvivesLedgerFailure() {
	draft := suite.postedTransaction()
	draft.LedgerJournalRef = nil

	suite.mockTxnRepo.On("MarkPosted", suite.ctx, suite.tenantID, draft.TransactionID, suite.userID, mock.AnythingOfType("time.Time")).Return(nil).Once()
	suite.mockTxnRepo.On("FindTransactionByID", suite.ctx, suite.tenantID, draft.TransactionID).Return(draft, nil).Once()
	suite.mockLedger.On("RecordEntry", suite.ctx, mock.AnythingOfType("domain.LedgerEntry")).Return(nil, apperrors.ErrServiceUnavailable).Once()

	txn, err := suite.service.Approve(suite.ctx, suite.tenantID, draft.TransactionID, suite.userID)

	// The local commit is authoritative: a ledger outage never fails the approval.
	suite.NoError(err)
	suite.NotNil(txn)
	suite.Nil(txn.LedgerJournalRef)
	suite.mockTxnRepo.AssertNotCalled(suite.T(), "SetLedgerReference")
}

func (suite *TransactionServiceTestSuite) TestApproveConflictOnConcurrentApproval() {
	transactionID := uuid.NewString()
	suite.mockTxnRepo.On("MarkPosted", suite.ctx, suite.tenantID, transactionID, suite.userID, mock.AnythingOfType("time.Time")).
		Return(apperrors.ErrStateConflict).Once()

	txn, err := suite.service.Approve(suite.ctx, suite.tenantID, transactionID, suite.userID)

	suite.Nil(txn)
	suite.ErrorIs(err, apperrors.ErrStateConflict)
	suite.mockLedger.AssertNotCalled(suite.T(), "RecordEntry")
}

func (suite *TransactionServiceTestSuite) TestApproveReloadFailureIsInternal() {
	transactionID := uuid.NewString()
	suite.mockTxnRepo.On("MarkPosted", suite.ctx, suite.tenantID, transactionID, suite.userID, mock.AnythingOfType("time.Time")).Return(nil).Once()
	suite.mockTxnRepo.On("FindTransactionByID", suite.ctx, suite.tenantID, transactionID).
		Return(nil, errors.New("connection lost")).Once()

	txn, err := suite.service.Approve(suite.ctx, suite.tenantID, transactionID, suite.userID)

	suite.Nil(txn)
	suite.ErrorIs(err, apperrors.ErrInternal)
	suite.mockLedger.AssertNotCalled(suite.T(), "RecordEntry")
}

func (suite *TransactionServiceTestSuite) TestVoidCreatesLinkedReversal() {
	posted := suite.postedTransaction()
	voided := *posted
	voided.Status = domain.StatusVoided

	suite.mockTxnRepo.On("FindTransactionByID", suite.ctx, suite.tenantID, posted.TransactionID).Return(posted, nil).Once()
	suite.mockTxnRepo.On("VoidWithReversal", suite.ctx, *posted, mock.MatchedBy(func(rev domain.Transaction) bool {
		return rev.Status == domain.StatusReversal &&
			rev.DebitAccount == posted.CreditAccount &&
			rev.CreditAccount == posted.DebitAccount &&
			rev.Amount == posted.Amount &&
			rev.ReversalOfID != nil && *rev.ReversalOfID == posted.TransactionID
	}), "duplicate receipt", suite.userID, mock.AnythingOfType("time.Time")).Return(nil).Once()
	suite.mockLedger.On("ReverseEntry", suite.ctx, *posted.LedgerJournalRef).Return(nil).Once()
	suite.mockTxnRepo.On("FindTransactionByID", suite.ctx, suite.tenantID, posted.TransactionID).Return(&voided, nil).Once()

	txn, err := suite.service.Void(suite.ctx, suite.tenantID, posted.TransactionID, "duplicate receipt", suite.userID)

	suite.NoError(err)
	suite.Equal(domain.StatusVoided, txn.Status)
	suite.mockTxnRepo.AssertExpectations(suite.T())
	suite.mockLedger.AssertExpectations(suite.T())
}

func (suite *TransactionServiceTestSuite) TestVoidRejectsNonPosted() {
	draft := suite.postedTransaction()
	draft.Status = domain.StatusDraft
	suite.mockTxnRepo.On("FindTransactionByID", suite.ctx, suite.tenantID, draft.TransactionID).Return(draft, nil).Once()

	txn, err := suite.service.Void(suite.ctx, suite.tenantID, draft.TransactionID, "mistake", suite.userID)

	suite.Nil(txn)
	suite.ErrorIs(err, apperrors.ErrStateConflict)
	suite.mockTxnRepo.AssertNotCalled(suite.T(), "VoidWithReversal")
}

func (suite *TransactionServiceTestSuite) TestVoidRequiresReason() {
	txn, err := suite.service.Void(suite.ctx, suite.tenantID, uuid.NewString(), "", suite.userID)

	suite.Nil(txn)
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *TransactionServiceTestSuite) TestTrialBalanceBalanced() {
	rows := []domain.TrialBalanceRow{
		{Account: "1001", Debit: 0, Credit: 1050},
		{Account: "6001", Debit: 1050, Credit: 0},
	}
	suite.mockTxnRepo.On("GetTrialBalance", suite.ctx, suite.tenantID, (*time.Time)(nil), (*time.Time)(nil)).Return(rows, nil).Once()

	report, err := suite.service.TrialBalance(suite.ctx, suite.tenantID, dto.TrialBalanceParams{})

	suite.NoError(err)
	suite.True(report.Balanced())
	suite.Equal(domain.Money(1050), report.TotalDebit)
	suite.Equal(domain.Money(1050), report.TotalCredit)
}

func (suite *TransactionServiceTestSuite) TestTrialBalanceUnbalancedSurfacesIntegrityError() {
	rows := []domain.TrialBalanceRow{
		{Account: "1001", Debit: 0, Credit: 1050},
		{Account: "6001", Debit: 1000, Credit: 0},
	}
	suite.mockTxnRepo.On("GetTrialBalance", suite.ctx, suite.tenantID, (*time.Time)(nil), (*time.Time)(nil)).Return(rows, nil).Once()

	report, err := suite.service.TrialBalance(suite.ctx, suite.tenantID, dto.TrialBalanceParams{})

	suite.ErrorIs(err, apperrors.ErrFinancialIntegrity)
	// The report is still returned so callers can inspect the drift.
	suite.NotNil(report)
	suite.Equal(domain.Money(-50), report.Difference())
}

func (suite *TransactionServiceTestSuite) TestListTransactionsRejectsUnknownStatus() {
	status := "EXPLODED"
	page, err := suite.service.ListTransactions(suite.ctx, suite.tenantID, dto.ListTransactionsParams{Status: &status})

	suite.Nil(page)
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.mockTxnRepo.AssertNotCalled(suite.T(), "ListTransactions")
}

func TestTransactionServiceTestSuite(t *testing.T) {
	suite.Run(t, new(TransactionServiceTestSuite))
}

func TestReversalSwapsAccounts(t *testing.T) {
	original := domain.Transaction{
		TransactionID: "txn-1",
		TenantID:      "tenant-1",
		DebitAccount:  "6001",
		CreditAccount: "1001",
		Amount:        domain.Money(995),
		Description:   "Taxi fare",
		Status:        domain.StatusPosted,
	}

	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	rev := original.Reversal("txn-2", now)

	assert.Equal(t, "1001", rev.DebitAccount)
	assert.Equal(t, "6001", rev.CreditAccount)
	assert.Equal(t, original.Amount, rev.Amount)
	assert.Equal(t, domain.StatusReversal, rev.Status)
	assert.Equal(t, "Reversal of: Taxi fare", rev.Description)
	assert.NotNil(t, rev.ReversalOfID)
	assert.Equal(t, "txn-1", *rev.ReversalOfID)
}
