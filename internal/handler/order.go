package handler

import (
	"io"
	"math"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/order-pipeline/internal/domain/order"
)

const maxBodyBytes = 1 << 20

// PlaceOrder handles POST /api/orders.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	raw, err := decodeOrder(jx.DecodeBytes(body))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	out, err := h.orders.Submit(r.Context(), raw)
	if err != nil {
		var persistErr *order.PersistError
		if errors.As(err, &persistErr) {
			zctx.From(r.Context()).Error("Order not persisted",
				zap.String("order_id", persistErr.OrderID),
				zap.Error(err),
			)
			writeError(w, http.StatusInternalServerError, "order not persisted")
			return
		}
		internalError(w, r, "Submit order", err)
		return
	}

	var e jx.Encoder
	switch o := out.(type) {
	case *order.Success:
		encodeSuccess(&e, o)
		writeJSON(w, http.StatusCreated, &e)
	case *order.Rejected:
		encodeRejected(&e, o.Reason)
		writeJSON(w, http.StatusBadRequest, &e)
	case *order.OutOfStock:
		e.ObjStart()
		e.FieldStart("code")
		e.Int(http.StatusConflict)
		e.FieldStart("message")
		e.Str("item " + o.ItemName + " is out of stock")
		e.FieldStart("item")
		e.Str(o.ItemName)
		e.ObjEnd()
		writeJSON(w, http.StatusConflict, &e)
	default:
		internalError(w, r, "Submit order", errors.Errorf("unexpected outcome %T", out))
	}
}

// decodeOrder reads a submission. A JSON null body yields a nil order and
// absent or null item fields stay nil so validation can name them.
func decodeOrder(d *jx.Decoder) (*order.RawOrder, error) {
	if d.Next() == jx.Null {
		return nil, d.Null()
	}

	raw := new(order.RawOrder)
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "customerName":
			raw.CustomerName, err = optString(d)
		case "email":
			raw.Email, err = optString(d)
		case "region":
			raw.Region, err = optString(d)
		case "tier":
			var tier string
			tier, err = optString(d)
			raw.Tier = order.Tier(tier)
		case "items":
			if d.Next() == jx.Null {
				return d.Null()
			}
			raw.Items = []order.RawItem{}
			err = d.Arr(func(d *jx.Decoder) error {
				item, err := decodeItem(d)
				if err != nil {
					return errors.Wrapf(err, "item %d", len(raw.Items))
				}
				raw.Items = append(raw.Items, item)
				return nil
			})
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return raw, nil
}

// decodeItem maps a null item to one with every field missing.
func decodeItem(d *jx.Decoder) (order.RawItem, error) {
	var item order.RawItem
	if d.Next() == jx.Null {
		return item, d.Null()
	}
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "name":
			name, err := optString(d)
			item.Name = name
			return err
		case "price":
			price, err := optDecimal(d)
			item.UnitPrice = price
			return err
		case "quantity":
			qty, err := optInt(d)
			item.Quantity = qty
			return err
		default:
			return d.Skip()
		}
	})
	return item, err
}

func optString(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Null {
		return "", d.Null()
	}
	return d.Str()
}

// optDecimal accepts a JSON number or a numeric string.
func optDecimal(d *jx.Decoder) (*decimal.Decimal, error) {
	var s string
	switch d.Next() {
	case jx.Null:
		return nil, d.Null()
	case jx.String:
		v, err := d.Str()
		if err != nil {
			return nil, err
		}
		s = v
	default:
		n, err := d.Num()
		if err != nil {
			return nil, err
		}
		s = n.String()
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return nil, errors.Wrap(err, "price")
	}
	return &v, nil
}

func optInt(d *jx.Decoder) (*int, error) {
	switch d.Next() {
	case jx.Null:
		return nil, d.Null()
	case jx.Number:
	default:
		return nil, errors.New("quantity must be a number")
	}
	n, err := d.Num()
	if err != nil {
		return nil, err
	}
	if !n.IsInt() {
		return nil, errors.Errorf("quantity %s is not an integer", n)
	}
	v, err := n.Int64()
	if err != nil || v > math.MaxInt32 || v < math.MinInt32 {
		return nil, errors.Errorf("quantity %s is out of range", n)
	}
	q := int(v)
	return &q, nil
}

func encodeSuccess(e *jx.Encoder, s *order.Success) {
	money := func(name string, v decimal.Decimal) {
		e.FieldStart(name)
		e.Raw([]byte(v.StringFixed(2)))
	}
	p := s.Order

	e.ObjStart()
	e.FieldStart("id")
	e.Str(s.OrderID)
	money("subtotal", p.Subtotal)
	money("discount", p.Discount)
	money("tax", p.Tax)
	money("shipping", p.Shipping)
	money("total", p.Total())
	money("grandTotal", p.GrandTotal)
	e.ObjEnd()
}

func encodeRejected(e *jx.Encoder, rej *order.RejectionError) {
	e.ObjStart()
	e.FieldStart("code")
	e.Int(http.StatusBadRequest)
	e.FieldStart("message")
	e.Str(rej.Error())
	e.FieldStart("reason")
	e.Str(string(rej.Reason))
	if rej.IsItemLevel() {
		e.FieldStart("index")
		e.Int(rej.Index)
	}
	e.ObjEnd()
}
