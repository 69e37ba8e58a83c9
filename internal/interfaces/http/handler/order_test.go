package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	orderapp "github.com/wellnest/backend/internal/application/order"
	"github.com/wellnest/backend/internal/domain/order"
	"github.com/wellnest/backend/tests/testutil"
)

type stubExporter struct {
	got []order.Order
}

func (e *stubExporter) Orders(_ context.Context, orders []order.Order) ([]byte, error) {
	e.got = orders
	return []byte("PK-xlsx"), nil
}

func newOrderHandler(orders *testutil.MockOrderRepository, exporter orderapp.Exporter) *OrderHandler {
	svc := orderapp.NewService(orderapp.ServiceConfig{
		Orders:   orders,
		Products: new(testutil.MockProductRepository),
		Tx:       &testutil.InlineTx{},
		Exporter: exporter,
	})
	return NewOrderHandler(svc, func() string { return "orders-2026-10-16.xlsx" })
}

func TestOrderHandler_GetMine(t *testing.T) {
	mine := testutil.NewTestOrder(t, order.PaymentModeCOD, "")
	theirs := testutil.NewTestOrder(t, order.PaymentModeCOD, "")
	theirs.UserID = uuid.New()

	repo := new(testutil.MockOrderRepository)
	repo.On("FindByID", mock.Anything, mine.ID).Return(mine, nil)
	repo.On("FindByID", mock.Anything, theirs.ID).Return(theirs, nil)
	h := newOrderHandler(repo, nil)

	testutil.RunHTTPTestCases(t, h.GetMine, []testutil.HTTPTestCase{
		{
			Name: "own order",
			Setup: func(t *testing.T, tc *testutil.TestContext) {
				tc.Context.Params = gin.Params{{Key: "id", Value: mine.ID.String()}}
				tc.SetUser(testutil.TestUserID(), "customer")
			},
			ExpectedStatus: http.StatusOK,
			Validate: func(t *testing.T, tc *testutil.TestContext) {
				data := testutil.JSONResponse(t, tc)["data"].(map[string]any)
				assert.Equal(t, mine.OrderNumber, data["order_number"])
			},
		},
		{
			Name: "another customer's order",
			Setup: func(t *testing.T, tc *testutil.TestContext) {
				tc.Context.Params = gin.Params{{Key: "id", Value: theirs.ID.String()}}
				tc.SetUser(testutil.TestUserID(), "customer")
			},
			ExpectedStatus: http.StatusNotFound,
		},
		{
			Name:           "anonymous",
			ExpectedStatus: http.StatusUnauthorized,
		},
	})
}

func TestOrderHandler_List_RejectsUnknownStatus(t *testing.T) {
	h := newOrderHandler(new(testutil.MockOrderRepository), nil)
	testutil.RunHTTPTestCase(t, h.List, testutil.HTTPTestCase{
		Path:           "/api/v1/admin/orders?status=Lost",
		ExpectedStatus: http.StatusBadRequest,
		Validate: func(t *testing.T, tc *testutil.TestContext) {
			testutil.AssertErrorResponse(t, tc, "VALIDATION_ERROR")
		},
	})
}

func TestOrderHandler_Export(t *testing.T) {
	o := testutil.NewTestOrder(t, order.PaymentModeCOD, "")
	repo := new(testutil.MockOrderRepository)
	repo.On("List", mock.Anything, mock.Anything).Return([]order.Order{*o}, int64(1), nil)
	exporter := &stubExporter{}
	h := newOrderHandler(repo, exporter)

	testutil.RunHTTPTestCase(t, h.Export, testutil.HTTPTestCase{
		Path:           "/api/v1/admin/orders/export?status=Processing",
		ExpectedStatus: http.StatusOK,
		Validate: func(t *testing.T, tc *testutil.TestContext) {
			header := tc.Recorder.Header()
			assert.Equal(t, xlsxContentType, header.Get("Content-Type"))
			assert.Equal(t, `attachment; filename="orders-2026-10-16.xlsx"`, header.Get("Content-Disposition"))
			assert.Equal(t, "PK-xlsx", string(tc.ResponseBody()))
			assert.Len(t, exporter.got, 1)
		},
	})
}

func TestOrderHandler_Export_TooLarge(t *testing.T) {
	repo := new(testutil.MockOrderRepository)
	repo.On("List", mock.Anything, mock.Anything).Return([]order.Order{}, int64(orderapp.MaxExportRows+1), nil)
	h := newOrderHandler(repo, &stubExporter{})

	testutil.RunHTTPTestCase(t, h.Export, testutil.HTTPTestCase{
		Path:           "/api/v1/admin/orders/export",
		ExpectedStatus: http.StatusUnprocessableEntity,
		Validate: func(t *testing.T, tc *testutil.TestContext) {
			testutil.AssertErrorResponse(t, tc, "EXPORT_TOO_LARGE")
		},
	})
}

func TestNewOrderHandler_DefaultExportName(t *testing.T) {
	h := NewOrderHandler(nil, nil)
	assert.Equal(t, "orders.xlsx", h.exportName())
}
