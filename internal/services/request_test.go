package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"workshop-system/internal/authz"
	"workshop-system/internal/dto"
	"workshop-system/internal/entities"
	apperrors "workshop-system/pkg/errors"
	"workshop-system/pkg/types"

	"github.com/aarondl/null/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newRequestServiceForTest(repo *fakeRequestRepo, notifier *fakeNotifier, now time.Time) *RequestService {
	svc := &RequestService{
		txManager:     &fakeTxManager{},
		requestRepo:   repo,
		numberingRepo: newFakeNumberingRepo(),
		logger:        zap.NewNop(),
		now:           func() time.Time { return now },
	}
	if notifier != nil {
		svc.notifier = notifier
		svc.notifyChatID = -100500
	}
	return svc
}

func TestRequestService_Create_NumbersWithinDay(t *testing.T) {
	repo := newFakeRequestRepo()
	day := time.Date(2025, 12, 7, 10, 0, 0, 0, time.UTC)
	svc := newRequestServiceForTest(repo, nil, day)

	payload := dto.CreateRequestDTO{Name: "Иван", Phone: "+79991234567", MainService: "оклейка"}

	first, err := svc.Create(context.Background(), payload)
	require.NoError(t, err)
	second, err := svc.Create(context.Background(), payload)
	require.NoError(t, err)

	assert.Equal(t, "7/12-1", first.RequestNumber)
	assert.Equal(t, "7/12-2", second.RequestNumber)
	assert.Equal(t, string(entities.RequestStatusNova), first.Status)

	// Следующий день начинает счёт заново.
	svc.now = func() time.Time { return day.AddDate(0, 0, 1) }
	third, err := svc.Create(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, "8/12-1", third.RequestNumber)
}

func TestRequestService_Create_NotificationFailureDoesNotFail(t *testing.T) {
	repo := newFakeRequestRepo()
	notifier := newFakeNotifier(errors.New("телеграм недоступен"))
	svc := newRequestServiceForTest(repo, notifier, time.Now())

	created, err := svc.Create(context.Background(), dto.CreateRequestDTO{Name: "Иван", Phone: "+79991234567", MainService: "шумоизоляция"})
	require.NoError(t, err)
	require.NotNil(t, created)

	// Уведомление уходит асинхронно и его сбой не виден вызывающему.
	select {
	case text := <-notifier.sent:
		assert.Contains(t, text, created.RequestNumber)
	case <-time.After(2 * time.Second):
		t.Fatal("уведомление не было отправлено")
	}
}

func TestRequestService_ChangeStatus_ValidationMatrix(t *testing.T) {
	manager := authz.CurrentUserFrom(42, authz.RoleManager)
	arrival := null.TimeFrom(time.Date(2025, 12, 10, 11, 0, 0, 0, time.UTC))

	cases := []struct {
		name    string
		payload dto.ChangeRequestStatusDTO
		wantErr bool
	}{
		{"SDELKA без комментария", dto.ChangeRequestStatusDTO{Status: "SDELKA", ArrivalDate: arrival}, true},
		{"SDELKA без даты приезда", dto.ChangeRequestStatusDTO{Status: "SDELKA", ManagerComment: "приедет"}, true},
		{"SDELKA с пробельным комментарием", dto.ChangeRequestStatusDTO{Status: "SDELKA", ManagerComment: "   ", ArrivalDate: arrival}, true},
		{"SDELKA полная", dto.ChangeRequestStatusDTO{Status: "SDELKA", ManagerComment: "приедет", ArrivalDate: arrival}, false},
		{"OTKLONENO без комментария", dto.ChangeRequestStatusDTO{Status: "OTKLONENO"}, true},
		{"OTKLONENO с комментарием", dto.ChangeRequestStatusDTO{Status: "OTKLONENO", ManagerComment: "не берёмся"}, false},
		{"ZAVERSHENA без комментария", dto.ChangeRequestStatusDTO{Status: "ZAVERSHENA"}, false},
		{"неизвестный статус", dto.ChangeRequestStatusDTO{Status: "UNKNOWN"}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := newFakeRequestRepo(&entities.Request{ID: 1, Status: entities.RequestStatusNova, Name: "Иван"})
			svc := newRequestServiceForTest(repo, nil, time.Now())

			res, err := svc.ChangeStatus(context.Background(), 1, manager, tc.payload)
			if tc.wantErr {
				require.Error(t, err)
				var inputErr *apperrors.InvalidInputError
				assert.ErrorAs(t, err, &inputErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.payload.Status, res.Status)
			require.NotNil(t, res.ManagerID)
			assert.Equal(t, uint64(42), *res.ManagerID)
			assert.NotNil(t, res.StartedAt)
		})
	}
}

func TestRequestService_ChangeStatus_RequiresProcessPermission(t *testing.T) {
	repo := newFakeRequestRepo(&entities.Request{ID: 1, Status: entities.RequestStatusNova})
	svc := newRequestServiceForTest(repo, nil, time.Now())

	for _, role := range []authz.Role{authz.RoleMaster, authz.RoleExecutor} {
		actor := authz.CurrentUserFrom(7, role)
		_, err := svc.ChangeStatus(context.Background(), 1, actor, dto.ChangeRequestStatusDTO{Status: "ZAVERSHENA"})
		assert.ErrorIs(t, err, apperrors.ErrForbidden, "роль %s", role)
	}
}

func TestRequestService_ChangeStatus_ZavershenaStampsCompletedAt(t *testing.T) {
	repo := newFakeRequestRepo(&entities.Request{ID: 1, Status: entities.RequestStatusSdelka})
	now := time.Date(2025, 12, 9, 15, 0, 0, 0, time.UTC)
	svc := newRequestServiceForTest(repo, nil, now)
	manager := authz.CurrentUserFrom(42, authz.RoleManager)

	res, err := svc.ChangeStatus(context.Background(), 1, manager, dto.ChangeRequestStatusDTO{Status: "ZAVERSHENA"})
	require.NoError(t, err)
	require.NotNil(t, res.CompletedAt)
}

func TestRequestService_FindAll_Scoping(t *testing.T) {
	repo := newFakeRequestRepo(
		&entities.Request{ID: 1, Status: entities.RequestStatusNova},
		&entities.Request{ID: 2, Status: entities.RequestStatusSdelka},
		&entities.Request{ID: 3, Status: entities.RequestStatusOtkloneno},
	)
	svc := newRequestServiceForTest(repo, nil, time.Now())

	t.Run("менеджер видит всё", func(t *testing.T) {
		list, total, err := svc.FindAll(context.Background(), authz.CurrentUserFrom(1, authz.RoleManager), types.Filter{})
		require.NoError(t, err)
		assert.Len(t, list, 3)
		assert.Equal(t, uint64(3), total)
	})

	t.Run("мастер видит только сделки", func(t *testing.T) {
		list, _, err := svc.FindAll(context.Background(), authz.CurrentUserFrom(2, authz.RoleMaster), types.Filter{})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, string(entities.RequestStatusSdelka), list[0].Status)
	})

	t.Run("исполнителю запрещено", func(t *testing.T) {
		_, _, err := svc.FindAll(context.Background(), authz.CurrentUserFrom(3, authz.RoleExecutor), types.Filter{})
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
	})
}

func TestRequestService_FindOne_MasterSeesOnlySdelka(t *testing.T) {
	repo := newFakeRequestRepo(
		&entities.Request{ID: 1, Status: entities.RequestStatusNova},
		&entities.Request{ID: 2, Status: entities.RequestStatusSdelka},
	)
	svc := newRequestServiceForTest(repo, nil, time.Now())
	master := authz.CurrentUserFrom(5, authz.RoleMaster)

	// Не-сделка неотличима от несуществующей.
	_, err := svc.FindOne(context.Background(), master, 1)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	res, err := svc.FindOne(context.Background(), master, 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), res.ID)
}
