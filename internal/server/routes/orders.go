package routes

import (
	"net/http"
	"sort"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/fr0stylo/abacate/internal/app/domain"
)

type orderResponse struct {
	ID           int64               `json:"id"`
	Status       domain.OrderStatus  `json:"status"`
	Currency     string              `json:"currency"`
	Total        string              `json:"total"`
	Customer     customerResponse    `json:"customer"`
	Items        []itemResponse      `json:"items"`
	Meta         map[string]string   `json:"meta"`
	Notes        []orderNoteResponse `json:"notes"`
	StockReduced bool                `json:"stock_reduced"`
	CreatedAt    string              `json:"created_at,omitempty"`
	UpdatedAt    string              `json:"updated_at,omitempty"`
}

type customerResponse struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type itemResponse struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
}

type orderNoteResponse struct {
	Note      string `json:"note"`
	CreatedAt string `json:"created_at,omitempty"`
}

type refundRequest struct {
	Amount string `json:"amount" validate:"required,numeric"`
	Reason string `json:"reason" validate:"max=500"`
}

func (a *APIRoutes) handleGetOrder(c echo.Context) error {
	order, err := a.gateway.Order(c.Request().Context(), orderIDParam(c))
	if err != nil {
		return chargeErrorResponse(c, err)
	}
	return c.JSON(http.StatusOK, toOrderResponse(order))
}

func (a *APIRoutes) handleCreateCharge(c echo.Context) error {
	charge, err := a.gateway.CreateCharge(c.Request().Context(), orderIDParam(c))
	if err != nil {
		return chargeErrorResponse(c, err)
	}
	status := http.StatusCreated
	if charge.Existing {
		status = http.StatusOK
	}
	return c.JSON(status, charge)
}

func (a *APIRoutes) handleCreatePixCharge(c echo.Context) error {
	pix, err := a.gateway.CreatePixCharge(c.Request().Context(), orderIDParam(c))
	if err != nil {
		return chargeErrorResponse(c, err)
	}
	status := http.StatusCreated
	if pix.Existing {
		status = http.StatusOK
	}
	return c.JSON(status, pix)
}

func (a *APIRoutes) handleRefund(c echo.Context) error {
	var req refundRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "invalid amount")
	}
	if err := a.gateway.ProcessRefund(c.Request().Context(), orderIDParam(c), amount, req.Reason); err != nil {
		return chargeErrorResponse(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

func (a *APIRoutes) handlePaymentLink(c echo.Context) error {
	link, err := a.gateway.PaymentLink(c.Request().Context(), orderIDParam(c))
	if err != nil {
		return chargeErrorResponse(c, err)
	}
	return c.JSON(http.StatusOK, link)
}

func toOrderResponse(order domain.Order) orderResponse {
	out := orderResponse{
		ID:       order.ID,
		Status:   order.Status,
		Currency: order.Currency,
		Total:    order.Total().StringFixed(2),
		Customer: customerResponse{
			Name:  order.Customer.FullName(),
			Email: order.Customer.Email,
			Phone: order.Customer.Phone,
		},
		Items:        make([]itemResponse, 0, len(order.Items)),
		Meta:         order.Meta,
		Notes:        make([]orderNoteResponse, 0, len(order.Notes)),
		StockReduced: order.StockReduced,
		CreatedAt:    formatTime(order.CreatedAt),
		UpdatedAt:    formatTime(order.UpdatedAt),
	}
	if out.Meta == nil {
		out.Meta = map[string]string{}
	}
	for _, item := range order.Items {
		out.Items = append(out.Items, itemResponse{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice.StringFixed(2),
		})
	}
	notes := append([]domain.OrderNote(nil), order.Notes...)
	sort.SliceStable(notes, func(i, j int) bool { return notes[i].ID < notes[j].ID })
	for _, note := range notes {
		out.Notes = append(out.Notes, orderNoteResponse{Note: note.Note, CreatedAt: formatTime(note.CreatedAt)})
	}
	return out
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.UTC().Format(time.RFC3339)
}
