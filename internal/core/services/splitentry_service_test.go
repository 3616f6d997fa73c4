package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/ledgerline/receipt-backoffice/internal/apperrors"
	"github.com/ledgerline/receipt-backoffice/internal/core/domain"
	portssvc "github.com/ledgerline/receipt-backoffice/internal/core/ports/services"
	"github.com/ledgerline/receipt-backoffice/internal/core/services"
	"github.com/ledgerline/receipt-backoffice/internal/dto"
)

type SplitEntryServiceTestSuite struct {
	suite.Suite
	mockTxnRepo *MockTransactionRepository
	mockDocRepo *MockDocumentRepository
	mockLedger  *MockLedger
	service     portssvc.SplitEntrySvcFacade
	tenantID    string
	userID      string
	ctx         context.Context
}

func (suite *SplitEntryServiceTestSuite) SetupTest() {
	suite.mockTxnRepo = new(MockTransactionRepository)
	suite.mockDocRepo = new(MockDocumentRepository)
	suite.mockLedger = new(MockLedger)
	suite.tenantID = uuid.NewString()
	suite.userID = uuid.NewString()
	suite.ctx = context.Background()

	suite.service = services.NewSplitEntryService(
		suite.mockTxnRepo,
		suite.mockDocRepo,
		services.WithSplitLedger(suite.mockLedger),
	)
}

func (suite *SplitEntryServiceTestSuite) document(total domain.Money) *domain.SourceDocument {
	return &domain.SourceDocument{
		DocumentID:   uuid.NewString(),
		TenantID:     suite.tenantID,
		VendorName:   "Office Depot",
		DocumentDate: time.Date(2026, 4, 20, 0, 0, 0, 0, time.UTC),
		TotalAmount:  &total,
		Status:       domain.DocumentConfirmed,
	}
}

func (suite *SplitEntryServiceTestSuite) request(docID string) dto.CreateSplitEntryRequest {
	return dto.CreateSplitEntryRequest{
		SourceDocumentID: docID,
		CreditAccount:    "1001",
		LineItems: []dto.SplitLineItem{
			{DebitAccount: "6001", Amount: "30.00", Description: "Paper"},
			{DebitAccount: "6002", Amount: "45.50", Description: "Toner"},
			{DebitAccount: "6003", Amount: "24.50", Description: "Pens"},
		},
	}
}

func (suite *SplitEntryServiceTestSuite) TestCreateSplitEntrySuccess() {
	doc := suite.document(domain.Money(10000)) // 30.00 + 45.50 + 24.50
	req := suite.request(doc.DocumentID)

	suite.mockDocRepo.On("FindDocumentByID", suite.ctx, suite.tenantID, doc.DocumentID).Return(doc, nil).Once()
	suite.mockTxnRepo.On("SaveSplitGroup", suite.ctx, mock.MatchedBy(func(entries []domain.Transaction) bool {
		if len(entries) != 3 {
			return false
		}
		groupID := entries[0].SplitGroupID
		for i, entry := range entries {
			if entry.Status != domain.StatusDraft ||
				entry.CreditAccount != "1001" ||
				entry.SplitGroupID == nil || *entry.SplitGroupID != *groupID ||
				entry.SplitIndex == nil || *entry.SplitIndex != i ||
				entry.SourceDocumentID == nil || *entry.SourceDocumentID != doc.DocumentID {
				return false
			}
		}
		return entries[0].Amount == domain.Money(3000) &&
			entries[1].Amount == domain.Money(4550) &&
			entries[2].Amount == domain.Money(2450)
	}), doc.DocumentID, suite.userID, mock.AnythingOfType("time.Time")).Return(nil).Once()
	suite.mockLedger.On("RecordEntry", suite.ctx, mock.AnythingOfType("domain.LedgerEntry")).
		Return(&domain.LedgerRef{JournalID: "journal-77"}, nil).Times(3)
	suite.mockTxnRepo.On("SetLedgerReference", suite.ctx, suite.tenantID, mock.AnythingOfType("string"), "journal-77", suite.userID, mock.AnythingOfType("time.Time")).
		Return(nil).Times(3)

	entries, err := suite.service.CreateSplitEntry(suite.ctx, suite.tenantID, req, suite.userID)

	suite.NoError(err)
	suite.Len(entries, 3)
	for _, entry := range entries {
		suite.NotNil(entry.LedgerJournalRef)
		suite.Equal("journal-77", *entry.LedgerJournalRef)
	}
	suite.mockTxnRepo.AssertExpectations(suite.T())
}

func (suite *SplitEntryServiceTestSuite) TestCreateSplitEntrySumMismatch() {
	doc := suite.document(domain.Money(9999))
	req := suite.request(doc.DocumentID)

	suite.mockDocRepo.On("FindDocumentByID", suite.ctx, suite.tenantID, doc.DocumentID).Return(doc, nil).Once()

	entries, err := suite.service.CreateSplitEntry(suite.ctx, suite.tenantID, req, suite.userID)

	suite.Nil(entries)
	suite.ErrorIs(err, apperrors.ErrFinancialIntegrity)
	suite.mockTxnRepo.AssertNotCalled(suite.T(), "SaveSplitGroup")
}

func (suite *SplitEntryServiceTestSuite) TestCreateSplitEntryRejectsDebitOnCreditAccount() {
	doc := suite.document(domain.Money(3000))
	req := dto.CreateSplitEntryRequest{
		SourceDocumentID: doc.DocumentID,
		CreditAccount:    "1001",
		LineItems: []dto.SplitLineItem{
			{DebitAccount: "1001", Amount: "30.00", Description: "Self-referential"},
		},
	}

	suite.mockDocRepo.On("FindDocumentByID", suite.ctx, suite.tenantID, doc.DocumentID).Return(doc, nil).Once()

	entries, err := suite.service.CreateSplitEntry(suite.ctx, suite.tenantID, req, suite.userID)

	suite.Nil(entries)
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.mockTxnRepo.AssertNotCalled(suite.T(), "SaveSplitGroup")
}

func (suite *SplitEntryServiceTestSuite) TestCreateSplitEntryRejectsEmptyLineItems() {
	entries, err := suite.service.CreateSplitEntry(suite.ctx, suite.tenantID, dto.CreateSplitEntryRequest{
		SourceDocumentID: uuid.NewString(),
		CreditAccount:    "1001",
	}, suite.userID)

	suite.Nil(entries)
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.mockDocRepo.AssertNotCalled(suite.T(), "FindDocumentByID")
}

func (suite *SplitEntryServiceTestSuite) TestCreateSplitEntryUnknownDocument() {
	docID := uuid.NewString()
	suite.mockDocRepo.On("FindDocumentByID", suite.ctx, suite.tenantID, docID).Return(nil, apperrors.ErrNotFound).Once()

	entries, err := suite.service.CreateSplitEntry(suite.ctx, suite.tenantID, suite.request(docID), suite.userID)

	suite.Nil(entries)
	suite.ErrorIs(err, apperrors.ErrNotFound)
}

func (suite *SplitEntryServiceTestSuite) TestCreateSplitEntrySurvivesLedgerFailure() {
	doc := suite.document(domain.Money(10000))
	req := suite.request(doc.DocumentID)

	suite.mockDocRepo.On("FindDocumentByID", suite.ctx, suite.tenantID, doc.DocumentID).Return(doc, nil).Once()
	suite.mockTxnRepo.On("SaveSplitGroup", suite.ctx, mock.Anything, doc.DocumentID, suite.userID, mock.AnythingOfType("time.Time")).Return(nil).Once()
	suite.mockLedger.On("RecordEntry", suite.ctx, mock.AnythingOfType("domain.LedgerEntry")).
		Return(nil, errors.New("ledger unavailable")).Times(3)

	entries, err := suite.service.CreateSplitEntry(suite.ctx, suite.tenantID, req, suite.userID)

	suite.NoError(err)
	suite.Len(entries, 3)
	for _, entry := range entries {
		suite.Nil(entry.LedgerJournalRef)
	}
	suite.mockTxnRepo.AssertNotCalled(suite.T(), "SetLedgerReference")
}

func (suite *SplitEntryServiceTestSuite) TestGetSplitEntries() {
	groupID := uuid.NewString()
	stored := []domain.Transaction{{TransactionID: uuid.NewString(), SplitGroupID: &groupID}}
	suite.mockTxnRepo.On("FindTransactionsByGroupID", suite.ctx, suite.tenantID, groupID).Return(stored, nil).Once()

	entries, err := suite.service.GetSplitEntries(suite.ctx, suite.tenantID, groupID)

	suite.NoError(err)
	suite.Len(entries, 1)
}

func (suite *SplitEntryServiceTestSuite) TestGetSplitEntriesUnknownGroup() {
	groupID := uuid.NewString()
	suite.mockTxnRepo.On("FindTransactionsByGroupID", suite.ctx, suite.tenantID, groupID).Return([]domain.Transaction{}, nil).Once()

	entries, err := suite.service.GetSplitEntries(suite.ctx, suite.tenantID, groupID)

	suite.Nil(entries)
	suite.ErrorIs(err, apperrors.ErrNotFound)
}

func TestSplitEntryServiceTestSuite(t *testing.T) {
	suite.Run(t, new(SplitEntryServiceTestSuite))
}
