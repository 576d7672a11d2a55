// Package catalog loads the seed catalog and writes it into a store.
package catalog

import (
	"bytes"
	"io"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/flowershop/db"
	"github.com/xenking/flowershop/internal/domain/coupon"
	"github.com/xenking/flowershop/internal/domain/flower"
)

// Data is a full catalog snapshot.
type Data struct {
	Shops   []flower.Shop
	Flowers []flower.Flower
	Coupons []coupon.Coupon
}

// Embedded decodes the catalog compiled into the binary.
func Embedded() (*Data, error) {
	return Load(bytes.NewReader(db.Catalog))
}

// Load decodes a catalog document:
//
//	{"shops": [...], "flowers": [...], "coupons": [...]}
//
// Money and percentages may be JSON numbers or strings. Timestamps are
// RFC 3339 or plain dates.
func Load(r io.Reader) (*Data, error) {
	var data Data
	d := jx.Decode(r, 4096)
	if err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "shops":
			return d.Arr(func(d *jx.Decoder) error {
				s, err := decodeShop(d)
				if err != nil {
					return err
				}
				data.Shops = append(data.Shops, s)
				return nil
			})
		case "flowers":
			return d.Arr(func(d *jx.Decoder) error {
				f, err := decodeFlower(d)
				if err != nil {
					return err
				}
				data.Flowers = append(data.Flowers, f)
				return nil
			})
		case "coupons":
			return d.Arr(func(d *jx.Decoder) error {
				c, err := decodeCoupon(d)
				if err != nil {
					return err
				}
				data.Coupons = append(data.Coupons, c)
				return nil
			})
		default:
			return d.Skip()
		}
	}); err != nil {
		return nil, errors.Wrap(err, "decode catalog")
	}
	if err := data.validate(); err != nil {
		return nil, err
	}
	return &data, nil
}

func (d *Data) validate() error {
	shops := make(map[string]struct{}, len(d.Shops))
	for _, s := range d.Shops {
		if s.ID == "" {
			return errors.Errorf("shop %q: empty id", s.Name)
		}
		shops[s.ID] = struct{}{}
	}
	for _, f := range d.Flowers {
		if f.ID == "" {
			return errors.Errorf("flower %q: empty id", f.Name)
		}
		if f.Price.IsNegative() {
			return errors.Errorf("flower %s: negative price", f.ID)
		}
		if _, ok := shops[f.ShopID]; !ok {
			return errors.Errorf("flower %s: unknown shop %q", f.ID, f.ShopID)
		}
	}
	for _, c := range d.Coupons {
		if c.ID == "" || c.Code == "" {
			return errors.Errorf("coupon %q: id and code are required", c.Code)
		}
		if c.Discount.IsNegative() || c.Discount.GreaterThan(decimal.NewFromInt(100)) {
			return errors.Errorf("coupon %s: discount %s out of range", c.Code, c.Discount)
		}
	}
	return nil
}

func decodeShop(d *jx.Decoder) (flower.Shop, error) {
	var s flower.Shop
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "id":
			s.ID, err = d.Str()
		case "name":
			s.Name, err = d.Str()
		case "category":
			s.Category, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	return s, errors.Wrap(err, "shop")
}

func decodeFlower(d *jx.Decoder) (flower.Flower, error) {
	var f flower.Flower
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "id":
			f.ID, err = d.Str()
		case "name":
			f.Name, err = d.Str()
		case "price":
			f.Price, err = decodeDecimal(d)
		case "image":
			f.Image, err = d.Str()
		case "description":
			f.Description, err = d.Str()
		case "shopId":
			f.ShopID, err = d.Str()
		case "isFavorite":
			f.IsFavorite, err = d.Bool()
		case "dateAdded":
			f.DateAdded, err = decodeTime(d)
		default:
			err = d.Skip()
		}
		return errors.Wrap(err, string(key))
	})
	return f, errors.Wrap(err, "flower")
}

func decodeCoupon(d *jx.Decoder) (coupon.Coupon, error) {
	var c coupon.Coupon
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "id":
			c.ID, err = d.Str()
		case "code":
			c.Code, err = d.Str()
		case "name":
			c.Name, err = d.Str()
		case "description":
			c.Description, err = d.Str()
		case "discount":
			c.Discount, err = decodeDecimal(d)
		case "isActive":
			c.Active, err = d.Bool()
		case "expiryDate":
			c.ExpiresAt, err = decodeTime(d)
		case "minOrderAmount":
			if d.Next() == jx.Null {
				return d.Null()
			}
			var v decimal.Decimal
			v, err = decodeDecimal(d)
			c.MinOrderAmount = decimal.NewNullDecimal(v)
		default:
			err = d.Skip()
		}
		return errors.Wrap(err, string(key))
	})
	return c, errors.Wrap(err, "coupon")
}

func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(s)
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(n.String())
	default:
		return decimal.Zero, errors.Errorf("unexpected %s", d.Next())
	}
}

func decodeTime(d *jx.Decoder) (time.Time, error) {
	s, err := d.Str()
	if err != nil {
		return time.Time{}, err
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "parse time %q", s)
	}
	return t, nil
}
