package kyc

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Footie-RU/footiedrop-engine/internal/cache"
	"github.com/Footie-RU/footiedrop-engine/internal/models"
	"github.com/Footie-RU/footiedrop-engine/internal/repository"
	"github.com/Footie-RU/footiedrop-engine/internal/services/email"
)

// MockUploader is a mock implementation of the storage.Uploader interface
type MockUploader struct {
	mock.Mock
}

func (m *MockUploader) Upload(ctx context.Context, blob []byte, ownerKey, filenameHint string) (string, error) {
	args := m.Called(ctx, blob, ownerKey, filenameHint)
	return args.String(0), args.Error(1)
}

// MockSender is a mock implementation of the email.Sender interface
type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, to, subject, body string) (email.SendResult, error) {
	args := m.Called(ctx, to, subject, body)
	return args.Get(0).(email.SendResult), args.Error(1)
}

type testFixture struct {
	service  *KYCService
	users    *repository.MemoryUserRepository
	records  *repository.MemoryKYCRepository
	uploader *MockUploader
	sender   *MockSender
	clock    *fakeClock
	user     models.User
}

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestFixture(t *testing.T) *testFixture {
	t.Helper()

	users := repository.NewMemoryUserRepository()
	records := repository.NewMemoryKYCRepository(users)
	uploader := new(MockUploader)
	sender := new(MockSender)
	clock := &fakeClock{t: time.Now()}
	listing := cache.NewMemoryCacheWithClock(cache.ListingTTL, clock.Now)

	user := models.User{
		ID:        uuid.New(),
		FirstName: "Ivan",
		LastName:  "Petrov",
		Email:     "ivan@example.com",
		Role:      models.RoleCustomer,
	}
	users.Put(user)

	return &testFixture{
		service:  NewKYCService(users, records, uploader, sender, listing),
		users:    users,
		records:  records,
		uploader: uploader,
		sender:   sender,
		clock:    clock,
		user:     user,
	}
}

func accepted(to string) email.SendResult {
	return email.SendResult{Accepted: []string{to}}
}

func rejected(to string) email.SendResult {
	return email.SendResult{Rejected: []string{to}}
}

func TestCreateOrGetCreatesWithDefaults(t *testing.T) {
	f := newTestFixture(t)

	record, created, err := f.service.CreateOrGet(context.Background(), f.user.ID)

	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, f.user.ID, record.UserID)
	assert.Equal(t, models.KYCStatusPending, record.Status)
	assert.Equal(t, models.StepStart, record.Step)
	assert.False(t, record.DocumentsInReviewSent)
}

func TestCreateOrGetIsIdempotent(t *testing.T) {
	f := newTestFixture(t)

	first, created, err := f.service.CreateOrGet(context.Background(), f.user.ID)
	require.NoError(t, err)
	require.True(t, created)

	second, created, err := f.service.CreateOrGet(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
}

func TestCreateOrGetUnknownUser(t *testing.T) {
	f := newTestFixture(t)

	_, _, err := f.service.CreateOrGet(context.Background(), uuid.New())

	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestCreateOrGetCorrectsDesyncedStep(t *testing.T) {
	f := newTestFixture(t)

	record := &models.KYCRecord{
		UserID:                f.user.ID,
		InternationalPassport: "https://cdn.example.com/passport.jpg",
		SchoolID:              "https://cdn.example.com/school.jpg",
		Selfie:                "https://cdn.example.com/selfie.jpg",
		Status:                models.KYCStatusPending,
		Step:                  models.StepSubmitSelfie,
	}
	require.NoError(t, f.records.Create(context.Background(), record))

	got, created, err := f.service.CreateOrGet(context.Background(), f.user.ID)

	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, models.StepReview, got.Step)

	stored, err := f.records.FindByID(context.Background(), record.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StepReview, stored.Step)
}

func TestUploadDocumentAdvancesStepPerKind(t *testing.T) {
	f := newTestFixture(t)
	ctx := context.Background()

	_, _, err := f.service.CreateOrGet(ctx, f.user.ID)
	require.NoError(t, err)

	f.uploader.On("Upload", mock.Anything, mock.Anything, f.user.ID.String(), mock.Anything).
		Return("https://cdn.example.com/doc.jpg", nil)

	record, err := f.service.UploadDocument(ctx, f.user.ID, models.DocumentInternationalPassport, []byte("passport"))
	require.NoError(t, err)
	assert.Equal(t, models.StepSubmitSchoolID, record.Step)

	record, err = f.service.UploadDocument(ctx, f.user.ID, models.DocumentSchoolID, []byte("school"))
	require.NoError(t, err)
	assert.Equal(t, models.StepSubmitSelfie, record.Step)

	record, err = f.service.UploadDocument(ctx, f.user.ID, models.DocumentSelfie, []byte("selfie"))
	require.NoError(t, err)
	assert.Equal(t, models.StepReview, record.Step)
	assert.True(t, record.DocumentsComplete())
}

func TestUploadDocumentIsIdempotentOnFilledSlot(t *testing.T) {
	f := newTestFixture(t)
	ctx := context.Background()

	_, _, err := f.service.CreateOrGet(ctx, f.user.ID)
	require.NoError(t, err)

	f.uploader.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("https://cdn.example.com/first.jpg", nil).Once()

	first, err := f.service.UploadDocument(ctx, f.user.ID, models.DocumentSelfie, []byte("one"))
	require.NoError(t, err)

	second, err := f.service.UploadDocument(ctx, f.user.ID, models.DocumentSelfie, []byte("two"))
	require.NoError(t, err)

	assert.Equal(t, first.Selfie, second.Selfie)
	assert.Equal(t, "https://cdn.example.com/first.jpg", second.Selfie)
	f.uploader.AssertExpectations(t)
}

func TestUploadDocumentRejectsBadInput(t *testing.T) {
	f := newTestFixture(t)
	ctx := context.Background()

	_, _, err := f.service.CreateOrGet(ctx, f.user.ID)
	require.NoError(t, err)

	_, err = f.service.UploadDocument(ctx, f.user.ID, models.DocumentKind("utility_bill"), []byte("x"))
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = f.service.UploadDocument(ctx, f.user.ID, models.DocumentSelfie, nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestUploadDocumentWithoutRecord(t *testing.T) {
	f := newTestFixture(t)

	_, err := f.service.UploadDocument(context.Background(), f.user.ID, models.DocumentSelfie, []byte("x"))

	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestUploadDocumentStorageFailureLeavesSlotEmpty(t *testing.T) {
	f := newTestFixture(t)
	ctx := context.Background()

	_, _, err := f.service.CreateOrGet(ctx, f.user.ID)
	require.NoError(t, err)

	f.uploader.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("", errors.New("cloudinary unavailable"))

	_, err = f.service.UploadDocument(ctx, f.user.ID, models.DocumentInternationalPassport, []byte("passport"))
	assert.ErrorIs(t, err, ErrUpstream)

	stored, err := f.records.FindByUserID(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.InternationalPassport)
	assert.Equal(t, models.StepStart, stored.Step)
}

func TestVerifyDocumentsIncompleteIsNotAnError(t *testing.T) {
	f := newTestFixture(t)
	ctx := context.Background()

	_, _, err := f.service.CreateOrGet(ctx, f.user.ID)
	require.NoError(t, err)

	f.uploader.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("https://cdn.example.com/doc.jpg", nil)
	_, err = f.service.UploadDocument(ctx, f.user.ID, models.DocumentInternationalPassport, []byte("passport"))
	require.NoError(t, err)

	result, err := f.service.VerifyDocuments(ctx, f.user.ID)

	require.NoError(t, err)
	assert.False(t, result.Complete)
	assert.ElementsMatch(t, []models.DocumentKind{models.DocumentSchoolID, models.DocumentSelfie}, result.Missing)
	f.sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func uploadAll(t *testing.T, f *testFixture) {
	t.Helper()
	ctx := context.Background()

	_, _, err := f.service.CreateOrGet(ctx, f.user.ID)
	require.NoError(t, err)

	f.uploader.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("https://cdn.example.com/doc.jpg", nil)
	for _, kind := range models.RequiredDocuments {
		_, err := f.service.UploadDocument(ctx, f.user.ID, kind, []byte(kind))
		require.NoError(t, err)
	}
}

func TestVerifyDocumentsLatchesNotificationFlag(t *testing.T) {
	f := newTestFixture(t)
	ctx := context.Background()
	uploadAll(t, f)

	f.sender.On("Send", mock.Anything, f.user.Email, mock.Anything, mock.Anything).
		Return(accepted(f.user.Email), nil).Once()

	result, err := f.service.VerifyDocuments(ctx, f.user.ID)
	require.NoError(t, err)
	assert.True(t, result.Complete)
	assert.True(t, result.Record.DocumentsInReviewSent)

	// A second call must not send again once the flag has latched.
	result, err = f.service.VerifyDocuments(ctx, f.user.ID)
	require.NoError(t, err)
	assert.True(t, result.Record.DocumentsInReviewSent)
	f.sender.AssertExpectations(t)
}

func TestVerifyDocumentsRetriesAfterRejectedRecipient(t *testing.T) {
	f := newTestFixture(t)
	ctx := context.Background()
	uploadAll(t, f)

	f.sender.On("Send", mock.Anything, f.user.Email, mock.Anything, mock.Anything).
		Return(rejected(f.user.Email), nil).Once()
	f.sender.On("Send", mock.Anything, f.user.Email, mock.Anything, mock.Anything).
		Return(accepted(f.user.Email), nil).Once()

	result, err := f.service.VerifyDocuments(ctx, f.user.ID)
	require.NoError(t, err)
	assert.True(t, result.Complete)
	assert.False(t, result.Record.DocumentsInReviewSent)

	result, err = f.service.VerifyDocuments(ctx, f.user.ID)
	require.NoError(t, err)
	assert.True(t, result.Record.DocumentsInReviewSent)
	f.sender.AssertExpectations(t)
}

func TestVerifyDocumentsCorrectsDesyncedStep(t *testing.T) {
	f := newTestFixture(t)
	ctx := context.Background()

	record := &models.KYCRecord{
		UserID:                f.user.ID,
		InternationalPassport: "a",
		SchoolID:              "b",
		Selfie:                "c",
		Status:                models.KYCStatusPending,
		Step:                  models.StepSubmitSelfie,
	}
	require.NoError(t, f.records.Create(ctx, record))

	f.sender.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(accepted(f.user.Email), nil)

	result, err := f.service.VerifyDocuments(ctx, f.user.ID)

	require.NoError(t, err)
	assert.Equal(t, models.StepReview, result.Record.Step)
}

func decideFixture(t *testing.T) (*testFixture, uuid.UUID) {
	f := newTestFixture(t)
	uploadAll(t, f)

	record, err := f.records.FindByUserID(context.Background(), f.user.ID)
	require.NoError(t, err)
	return f, record.ID
}

func TestDecideApproved(t *testing.T) {
	f, recordID := decideFixture(t)

	f.sender.On("Send", mock.Anything, f.user.Email, "KYC Approved", mock.Anything).
		Return(accepted(f.user.Email), nil).Once()

	record, err := f.service.Decide(context.Background(), recordID, models.KYCStatusApproved, "")

	require.NoError(t, err)
	assert.Equal(t, models.KYCStatusApproved, record.Status)
	assert.Equal(t, models.StepComplete, record.Step)
	assert.True(t, record.DocumentsVerifiedSent)
	f.sender.AssertExpectations(t)
}

func TestDecideRejectedResetsPipeline(t *testing.T) {
	f, recordID := decideFixture(t)

	f.sender.On("Send", mock.Anything, f.user.Email, "KYC Rejected", mock.Anything).
		Return(accepted(f.user.Email), nil).Once()

	record, err := f.service.Decide(context.Background(), recordID, models.KYCStatusRejected, "selfie is blurry")

	require.NoError(t, err)
	assert.Equal(t, models.KYCStatusRejected, record.Status)
	assert.Equal(t, models.StepStart, record.Step)
	assert.Equal(t, "selfie is blurry", record.RejectionReason)
	assert.True(t, record.DocumentsRejectedSent)

	// Slots are cleared so the user can actually resubmit.
	stored, err := f.records.FindByID(context.Background(), recordID)
	require.NoError(t, err)
	assert.Empty(t, stored.InternationalPassport)
	assert.Empty(t, stored.SchoolID)
	assert.Empty(t, stored.Selfie)
}

func TestDecideApprovedAfterRejectClearsReason(t *testing.T) {
	f, recordID := decideFixture(t)
	ctx := context.Background()

	f.sender.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(accepted(f.user.Email), nil)

	_, err := f.service.Decide(ctx, recordID, models.KYCStatusRejected, "blurry selfie")
	require.NoError(t, err)

	// Resubmission after rejection, then approval on re-review.
	for _, kind := range models.RequiredDocuments {
		_, err := f.service.UploadDocument(ctx, f.user.ID, kind, []byte(kind))
		require.NoError(t, err)
	}

	record, err := f.service.Decide(ctx, recordID, models.KYCStatusApproved, "")
	require.NoError(t, err)
	assert.Equal(t, models.KYCStatusApproved, record.Status)
	assert.Empty(t, record.RejectionReason)

	stored, err := f.records.FindByID(ctx, recordID)
	require.NoError(t, err)
	assert.Equal(t, models.KYCStatusApproved, stored.Status)
	assert.Empty(t, stored.RejectionReason)
}

func TestDecideApprovedIsTerminal(t *testing.T) {
	f, recordID := decideFixture(t)

	f.sender.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(accepted(f.user.Email), nil)

	_, err := f.service.Decide(context.Background(), recordID, models.KYCStatusApproved, "")
	require.NoError(t, err)

	_, err = f.service.Decide(context.Background(), recordID, models.KYCStatusRejected, "changed my mind")
	assert.ErrorIs(t, err, ErrAlreadyDecided)
}

func TestDecideRejectsUnknownDecision(t *testing.T) {
	f, recordID := decideFixture(t)

	_, err := f.service.Decide(context.Background(), recordID, models.KYCStatusPending, "")

	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestDecideUnknownRecord(t *testing.T) {
	f := newTestFixture(t)

	_, err := f.service.Decide(context.Background(), uuid.New(), models.KYCStatusApproved, "")

	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestDecideSurvivesNotificationFailure(t *testing.T) {
	f, recordID := decideFixture(t)

	f.sender.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(email.SendResult{}, errors.New("smtp down"))

	record, err := f.service.Decide(context.Background(), recordID, models.KYCStatusApproved, "")

	// The status change must commit even though the mail never went out.
	require.NoError(t, err)
	assert.Equal(t, models.KYCStatusApproved, record.Status)
	assert.False(t, record.DocumentsVerifiedSent)

	stored, err := f.records.FindByID(context.Background(), recordID)
	require.NoError(t, err)
	assert.Equal(t, models.KYCStatusApproved, stored.Status)
	assert.False(t, stored.DocumentsVerifiedSent)
}

func TestListRecordsServesWarmCacheRegardlessOfArguments(t *testing.T) {
	f := newTestFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		user := models.User{ID: uuid.New(), Email: "user@example.com"}
		f.users.Put(user)
		_, _, err := f.service.CreateOrGet(ctx, user.ID)
		require.NoError(t, err)
	}

	first, err := f.service.ListRecords(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, first.CurrentPage)
	assert.Equal(t, int64(3), first.TotalRecords)
	assert.Len(t, first.Records, 2)

	// Warm cache answers the second call even though it asks for page 2.
	second, err := f.service.ListRecords(ctx, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	f.clock.Advance(cache.ListingTTL + time.Second)

	third, err := f.service.ListRecords(ctx, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, third.CurrentPage)
	assert.Len(t, third.Records, 1)
}

func TestListRecordsStripsOwnerBackReference(t *testing.T) {
	f := newTestFixture(t)
	ctx := context.Background()

	_, _, err := f.service.CreateOrGet(ctx, f.user.ID)
	require.NoError(t, err)

	result, err := f.service.ListRecords(ctx, 1, 10)

	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	require.NotNil(t, result.Records[0].User)
	assert.Nil(t, result.Records[0].User.KYC)
}

func TestFullPipelineScenario(t *testing.T) {
	f := newTestFixture(t)
	ctx := context.Background()

	record, created, err := f.service.CreateOrGet(ctx, f.user.ID)
	require.NoError(t, err)
	require.True(t, created)
	assert.Equal(t, models.StepStart, record.Step)
	assert.Equal(t, models.KYCStatusPending, record.Status)

	f.uploader.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("https://cdn.example.com/doc.jpg", nil)

	record, err = f.service.UploadDocument(ctx, f.user.ID, models.DocumentInternationalPassport, []byte("passport"))
	require.NoError(t, err)
	assert.Equal(t, models.StepSubmitSchoolID, record.Step)

	record, err = f.service.UploadDocument(ctx, f.user.ID, models.DocumentSchoolID, []byte("school"))
	require.NoError(t, err)
	assert.Equal(t, models.StepSubmitSelfie, record.Step)

	record, err = f.service.UploadDocument(ctx, f.user.ID, models.DocumentSelfie, []byte("selfie"))
	require.NoError(t, err)
	assert.Equal(t, models.StepReview, record.Step)

	f.sender.On("Send", mock.Anything, f.user.Email, "KYC Verification", mock.Anything).
		Return(accepted(f.user.Email), nil).Once()

	result, err := f.service.VerifyDocuments(ctx, f.user.ID)
	require.NoError(t, err)
	assert.True(t, result.Complete)
	assert.True(t, result.Record.DocumentsInReviewSent)

	f.sender.On("Send", mock.Anything, f.user.Email, "KYC Approved", mock.Anything).
		Return(accepted(f.user.Email), nil).Once()

	record, err = f.service.Decide(ctx, record.ID, models.KYCStatusApproved, "")
	require.NoError(t, err)
	assert.Equal(t, models.StepComplete, record.Step)
	assert.Equal(t, models.KYCStatusApproved, record.Status)
	assert.True(t, record.DocumentsVerifiedSent)

	f.sender.AssertExpectations(t)
}
