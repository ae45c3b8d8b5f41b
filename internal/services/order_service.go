package services

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/parvezdia/textile-waste-management/internal/domain"
	applog "github.com/parvezdia/textile-waste-management/internal/log"
	"github.com/parvezdia/textile-waste-management/internal/repos"
)

// CancellationWindow is how long after placement a buyer may cancel.
const CancellationWindow = 24 * time.Hour

// orderTransitions is the authoritative forward path. Every non-terminal
// state can escape to CANCELED; DELIVERED and CANCELED are terminal.
var orderTransitions = map[string][]string{
	domain.OrderPending:          {domain.OrderConfirmed, domain.OrderCanceled},
	domain.OrderConfirmed:        {domain.OrderInProduction, domain.OrderCanceled},
	domain.OrderInProduction:     {domain.OrderReadyForDelivery, domain.OrderCanceled},
	domain.OrderReadyForDelivery: {domain.OrderShipped, domain.OrderCanceled},
	domain.OrderShipped:          {domain.OrderDelivered, domain.OrderCanceled},
	domain.OrderDelivered:        {},
	domain.OrderCanceled:         {},
}

func canTransition(from, to string) bool {
	for _, s := range orderTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// OrderService drives orders through their lifecycle and settles material
// consumption on delivery.
type OrderService struct {
	DB      *sqlx.DB
	Orders  *repos.OrderRepo
	Designs *repos.DesignRepo
	Ledger  *WasteService
	Notify  NotificationGateway
}

func NewOrderService(db *sqlx.DB, orders *repos.OrderRepo, designs *repos.DesignRepo, ledger *WasteService, notify NotificationGateway) *OrderService {
	return &OrderService{DB: db, Orders: orders, Designs: designs, Ledger: ledger, Notify: notify}
}

type PlaceInput struct {
	DesignID       string
	Quantity       int
	Customizations map[string]string
	PaymentMethod  string
	Address        string
	Carrier        string
}

// Place creates a PENDING order. The design must be PUBLISHED, the
// customizations must name configured options and choices, and the
// quantity must fit within what the bound materials can produce. The
// fulfillable check, order insert and SALE row all happen in one
// transaction so a racing order cannot oversell the same lots.
func (s *OrderService) Place(buyerID string, in PlaceInput) (*domain.Order, error) {
	if in.Quantity < 1 {
		return nil, domain.Validationf("quantity must be at least 1")
	}
	if in.Address == "" {
		return nil, domain.Validationf("delivery address is required")
	}
	if in.PaymentMethod == "" {
		in.PaymentMethod = domain.PayCreditCard
	}

	design, err := s.Designs.Get(in.DesignID)
	if err != nil {
		return nil, err
	}
	if design.Status != domain.DesignPublished {
		return nil, domain.Validationf("design %s is not published", in.DesignID)
	}
	opts, err := s.Designs.Options(in.DesignID)
	if err != nil {
		return nil, err
	}
	if err := checkCustomizations(opts, in.Customizations); err != nil {
		return nil, err
	}
	total := OrderTotal(design.BasePrice, opts, in.Customizations, in.Quantity)

	now := time.Now().UTC()
	custJSON, err := json.Marshal(in.Customizations)
	if err != nil {
		return nil, err
	}

	var order *domain.Order
	err = repos.WithTxRetry(s.DB, func(tx *sqlx.Tx) error {
		d, err := s.Designs.GetTx(tx, in.DesignID)
		if err != nil {
			return err
		}
		if d.Status != domain.DesignPublished {
			return domain.Validationf("design %s is not published", in.DesignID)
		}
		lots, err := s.Designs.Materials(tx, in.DesignID)
		if err != nil {
			return err
		}
		if max := FulfillableFromLots(lots); in.Quantity > max {
			return domain.Validationf("only %d units of design %s can be produced", max, in.DesignID)
		}

		o := &domain.Order{
			ID:                 newID("ORD"),
			BuyerID:            buyerID,
			DesignID:           in.DesignID,
			Quantity:           in.Quantity,
			CustomizationsJSON: string(custJSON),
			Status:             domain.OrderPending,
			TotalPrice:         total,
			PaymentID:          newID("PAY"),
			DeliveryID:         newID("DLV"),
			DateOrdered:        now.Format(time.RFC3339),
			Customizations:     in.Customizations,
		}
		if err := s.Orders.InsertPayment(tx, &domain.PaymentInfo{
			ID:              o.PaymentID,
			Method:          in.PaymentMethod,
			Amount:          total,
			Status:          domain.PaymentCompleted,
			TransactionDate: now.Format(time.RFC3339),
		}); err != nil {
			return err
		}
		if err := s.Orders.InsertDelivery(tx, &domain.DeliveryInfo{
			ID:                    o.DeliveryID,
			TrackingNumber:        newID("TRK"),
			Carrier:               in.Carrier,
			Address:               in.Address,
			EstimatedDeliveryDate: now.Add(14 * 24 * time.Hour).Format(time.RFC3339),
			Status:                domain.DeliveryProcessing,
		}); err != nil {
			return err
		}
		if err := s.Orders.InsertOrder(tx, o); err != nil {
			return err
		}
		if err := s.Orders.InsertTransaction(tx, &domain.Transaction{
			ID:        "TXN-" + o.ID,
			OrderID:   o.ID,
			Amount:    total,
			Type:      domain.TxnSale,
			Status:    domain.TxnCompleted,
			CreatedAt: now.Format(time.RFC3339),
		}); err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Notify.Notify(buyerID, domain.NotifyOrderUpdate,
		fmt.Sprintf("Your order %s has been placed", order.ID))
	applog.Info(nil, "order.place", map[string]any{
		"order": order.ID, "design": in.DesignID, "quantity": in.Quantity, "total": total.String(),
	})
	return order, nil
}

func checkCustomizations(opts []domain.CustomizationOption, customizations map[string]string) error {
	byName := make(map[string]*domain.CustomizationOption, len(opts))
	for i := range opts {
		byName[opts[i].Name] = &opts[i]
	}
	for name, choice := range customizations {
		opt, ok := byName[name]
		if !ok {
			return domain.Validationf("design has no %q option", name)
		}
		choices := opt.EffectiveChoices()
		if len(choices) == 0 {
			continue
		}
		valid := false
		for _, c := range choices {
			if c == choice {
				valid = true
				break
			}
		}
		if !valid {
			return domain.Validationf("%q is not a valid choice for option %q", choice, name)
		}
	}
	return nil
}

// Transition advances an order along the lifecycle. Entering DELIVERED
// consumes the bound materials in the same transaction, so a shortfall in
// any lot rolls the whole delivery back. Entering CANCELED settles the
// cancellation, refund included.
func (s *OrderService) Transition(orderID, newStatus, actorID string) (*domain.Order, error) {
	now := time.Now().UTC()
	var (
		order *domain.Order
		from  string
	)
	err := repos.WithTxRetry(s.DB, func(tx *sqlx.Tx) error {
		o, err := s.Orders.GetTx(tx, orderID)
		if err != nil {
			return err
		}
		from = o.Status
		if !canTransition(o.Status, newStatus) {
			return &domain.InvalidTransitionError{From: o.Status, To: newStatus}
		}
		if newStatus == domain.OrderCanceled {
			if err := s.cancelTx(tx, o, now); err != nil {
				return err
			}
			order = o
			return nil
		}
		if newStatus == domain.OrderDelivered {
			lots, err := s.Designs.Materials(tx, o.DesignID)
			if err != nil {
				return err
			}
			for i := range lots {
				if !activeStatus(lots[i].Status) || lots[i].Quantity <= 0 {
					continue
				}
				if err := s.Ledger.ConsumeTx(tx, lots[i].ID, float64(o.Quantity), actorID); err != nil {
					return err
				}
			}
		}
		if err := s.Orders.UpdateStatus(tx, orderID, newStatus); err != nil {
			return err
		}
		o.Status = newStatus
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Notify.Notify(order.BuyerID, domain.NotifyOrderUpdate,
		fmt.Sprintf("Your order %s has been updated from %s to %s", orderID, from, newStatus))
	if newStatus == domain.OrderInProduction {
		if design, err := s.Designs.Get(order.DesignID); err == nil {
			s.Notify.Notify(design.DesignerID, domain.NotifyOrderUpdate,
				fmt.Sprintf("Production has started for order %s", orderID))
		}
	}
	applog.Audit(nil, "order.transition", map[string]any{
		"order": orderID, "from": from, "to": newStatus, "actor": actorID,
	})
	return order, nil
}

// Cancel cancels an order. Buyers may only cancel their own orders within
// the cancellation window; staff may cancel any order that has not
// shipped. A completed payment is refunded.
func (s *OrderService) Cancel(orderID string, actor *domain.User) (*domain.Order, error) {
	now := time.Now().UTC()
	var order *domain.Order
	err := repos.WithTxRetry(s.DB, func(tx *sqlx.Tx) error {
		o, err := s.Orders.GetTx(tx, orderID)
		if err != nil {
			return err
		}
		if o.Status == domain.OrderShipped || o.Status == domain.OrderDelivered || o.Status == domain.OrderCanceled {
			return domain.Validationf("order %s cannot be cancelled at this stage", orderID)
		}
		if actor != nil && actor.Role == domain.RoleBuyer {
			if o.BuyerID != actor.ID {
				return domain.ErrNotFound
			}
			placed, err := o.OrderedAt()
			if err != nil {
				return err
			}
			if now.Sub(placed) > CancellationWindow {
				return domain.Validationf("order %s is outside the cancellation window", orderID)
			}
		}

		if err := s.cancelTx(tx, o, now); err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Notify.Notify(order.BuyerID, domain.NotifyOrderUpdate,
		fmt.Sprintf("Your order %s has been cancelled", orderID))
	return order, nil
}

// cancelTx settles a cancellation inside the caller's transaction. A
// completed payment gets a REFUND row before the status flips.
func (s *OrderService) cancelTx(tx *sqlx.Tx, o *domain.Order, now time.Time) error {
	payment, err := s.Orders.GetPayment(tx, o.PaymentID)
	if err != nil {
		return err
	}
	if payment.Status == domain.PaymentCompleted {
		if err := s.Orders.InsertTransaction(tx, &domain.Transaction{
			ID:        "REF-" + o.ID,
			OrderID:   o.ID,
			Amount:    payment.Amount,
			Type:      domain.TxnRefund,
			Status:    domain.TxnCompleted,
			CreatedAt: now.Format(time.RFC3339),
		}); err != nil {
			return err
		}
	}
	if err := s.Orders.UpdateStatus(tx, o.ID, domain.OrderCanceled); err != nil {
		return err
	}
	o.Status = domain.OrderCanceled
	return nil
}

func (s *OrderService) Get(orderID string) (*domain.Order, error) {
	return s.Orders.Get(orderID)
}

func (s *OrderService) ListByBuyer(buyerID string) ([]domain.Order, error) {
	return s.Orders.ListByBuyer(buyerID)
}

func (s *OrderService) ListLatest(limit int) ([]domain.Order, error) {
	return s.Orders.ListLatest(limit)
}
