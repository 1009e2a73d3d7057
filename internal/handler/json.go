package handler

import (
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/catalog-service/internal/domain/category"
	"github.com/xenking/catalog-service/internal/domain/page"
	"github.com/xenking/catalog-service/internal/domain/product"
)

const maxBodySize = 1 << 20

func writeJSON(w http.ResponseWriter, status int, e *jx.Encoder) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

type categoryRequest struct {
	Name   string `json:"name" validate:"notblank"`
	Active *bool  `json:"active"`
}

func (c *categoryRequest) Decode(d *jx.Decoder) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "name":
			c.Name, err = decodeString(d)
		case "active":
			c.Active, err = decodeOptBool(d)
		default:
			err = d.Skip()
		}
		return errors.Wrapf(err, "field %q", key)
	})
}

func (c *categoryRequest) input() category.Input {
	return category.Input{Name: c.Name, Active: c.Active}
}

type productRequest struct {
	Name        string           `json:"name" validate:"notblank"`
	Description string           `json:"description" validate:"max=20"`
	Price       *decimal.Decimal `json:"price" validate:"required,price"`
	Stock       int              `json:"stock" validate:"gt=0"`
	Active      *bool            `json:"active"`
	CategoryID  int64            `json:"categoryId" validate:"required,gt=0"`
}

func (p *productRequest) Decode(d *jx.Decoder) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "name":
			p.Name, err = decodeString(d)
		case "description":
			p.Description, err = decodeString(d)
		case "price":
			p.Price, err = decodeDecimal(d)
		case "stock":
			p.Stock, err = d.Int()
		case "active":
			p.Active, err = decodeOptBool(d)
		case "categoryId":
			p.CategoryID, err = d.Int64()
		default:
			err = d.Skip()
		}
		return errors.Wrapf(err, "field %q", key)
	})
}

func (p *productRequest) input() product.Input {
	in := product.Input{
		Name:        p.Name,
		Description: p.Description,
		Stock:       p.Stock,
		Active:      p.Active,
		CategoryID:  p.CategoryID,
	}
	if p.Price != nil {
		in.Price = *p.Price
	}
	return in
}

// decodeString reads a string, treating null as empty.
func decodeString(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Null {
		return "", d.Null()
	}
	return d.Str()
}

func decodeOptBool(d *jx.Decoder) (*bool, error) {
	if d.Next() == jx.Null {
		return nil, d.Null()
	}
	v, err := d.Bool()
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// decodeDecimal accepts both JSON numbers and numeric strings, keeping the
// exact decimal text.
func decodeDecimal(d *jx.Decoder) (*decimal.Decimal, error) {
	var raw string
	switch d.Next() {
	case jx.Null:
		return nil, d.Null()
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return nil, err
		}
		raw = s
	default:
		n, err := d.Num()
		if err != nil {
			return nil, err
		}
		raw = n.String()
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

type decoder interface {
	Decode(d *jx.Decoder) error
}

// decodeRequest reads a JSON object from the body and validates it. Field
// violations are returned as a map; everything else as an error.
func (h *Handler) decodeRequest(w http.ResponseWriter, r *http.Request, v decoder) (map[string]string, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		return nil, errMalformedBody
	}
	if err := v.Decode(jx.DecodeBytes(body)); err != nil {
		return nil, errMalformedBody
	}
	if err := h.validate.Struct(v); err != nil {
		if fields, ok := fieldErrors(err); ok {
			return fields, errValidation
		}
		return nil, errors.Wrap(err, "validate request")
	}
	return nil, nil
}

func encodeCategory(e *jx.Encoder, c *category.Category) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(c.ID)
	e.FieldStart("name")
	e.Str(c.Name)
	e.FieldStart("active")
	e.Bool(c.Active)
	e.ObjEnd()
}

func (h *Handler) encodeProduct(e *jx.Encoder, v *product.View) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(v.ID)
	e.FieldStart("name")
	e.Str(v.Name)
	e.FieldStart("description")
	e.Str(v.Description)
	e.FieldStart("price")
	e.Num(jx.Num(v.Price.StringFixed(2)))
	e.FieldStart("stock")
	e.Int(v.Stock)
	e.FieldStart("active")
	e.Bool(v.Active)
	e.FieldStart("imageKey")
	if v.ImageKey == "" {
		e.Null()
	} else {
		e.Str(v.ImageKey)
	}
	e.FieldStart("imageUrl")
	if v.ImageKey == "" {
		e.Null()
	} else {
		e.Str(h.imageBaseURL + v.ImageKey)
	}
	e.FieldStart("categoryId")
	e.Int64(v.CategoryID)
	e.FieldStart("categoryName")
	e.Str(v.CategoryName)
	e.ObjEnd()
}

func encodePage[T any](e *jx.Encoder, p page.Page[T], item func(*jx.Encoder, *T)) {
	e.ObjStart()
	e.FieldStart("content")
	e.ArrStart()
	for i := range p.Content {
		item(e, &p.Content[i])
	}
	e.ArrEnd()
	e.FieldStart("page")
	e.Int(p.Page)
	e.FieldStart("size")
	e.Int(p.Size)
	e.FieldStart("totalElements")
	e.Int64(p.TotalElements)
	e.FieldStart("totalPages")
	e.Int(p.TotalPages)
	e.ObjEnd()
}
