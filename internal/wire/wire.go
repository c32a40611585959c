// Package wire implements the fixed-layout binary codec described in spec
// §6.1: a 10-byte header followed by a NewOrder, Cancel or Modify body, all
// little-endian with no padding beyond the declared fields.
//
// Grounded on _examples/original_source/protocol/include/protocol/{messages.h,
// binary_codec.h,message_dispatcher.h} and order_parser/message_parser.h,
// translated from C++ struct-packing/memcpy into explicit encoding/binary
// reads and writes -- Go has no portable equivalent of #pragma pack, so the
// header and bodies are read field-by-field instead of reinterpret-cast.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/vss84/hft-playpen/internal/types"
)

// MsgType identifies which body follows the header.
type MsgType uint8

const (
	MsgNewOrder MsgType = 0
	MsgCancel   MsgType = 1
	MsgModify   MsgType = 2
)

const (
	// HeaderSize is the fixed header length in bytes (§6.1).
	HeaderSize = 10

	// CurrentVersion is the only version this codec emits.
	CurrentVersion uint8 = 1

	newOrderBodySize = 8 + 4 + 4 + 4 + 1 + 1 + 1 + 1 // 24
	cancelBodySize   = 8 + 4 + 4                      // 16
	modifyBodySize   = 8 + 4 + 4 + 4 + 4              // 24

	// DefaultTickSize is used when a caller doesn't supply one (§6.1).
	DefaultTickSize = types.TickSize
)

var (
	ErrShortHeader    = errors.New("wire: input shorter than header size")
	ErrIncompleteBody = errors.New("wire: msg_length exceeds supplied bytes")
	ErrUnknownMsgType = errors.New("wire: unknown msg_type")
	ErrModifyRejected = errors.New("wire: modify not implemented")
	ErrInvalidEnum    = errors.New("wire: invalid enum byte")
)

// Header is the 10-byte frame prefix common to every message.
type Header struct {
	MsgLength uint64
	MsgType   MsgType
	Version   uint8
}

// ParseHeader decodes and validates the header, enforcing both length
// conditions from §6.2 before any body parsing is attempted.
func ParseHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, ErrShortHeader
	}
	h := Header{
		MsgLength: binary.LittleEndian.Uint64(buf[0:8]),
		MsgType:   MsgType(buf[8]),
		Version:   buf[9],
	}
	if h.MsgLength > uint64(len(buf)) {
		return Header{}, ErrIncompleteBody
	}
	return h, nil
}

// Decode parses a complete frame (header + body) into an OrderRequest. The
// caller must pass exactly the bytes belonging to one frame, e.g. buf[:h.MsgLength]
// once the header has validated msg_length.
func Decode(buf []byte) (types.OrderRequest, error) {
	h, err := ParseHeader(buf)
	if err != nil {
		return types.OrderRequest{}, err
	}
	body := buf[HeaderSize:]

	switch h.MsgType {
	case MsgNewOrder:
		return decodeNewOrder(body)
	case MsgCancel:
		return decodeCancel(body)
	case MsgModify:
		return types.OrderRequest{}, ErrModifyRejected
	default:
		return types.OrderRequest{}, ErrUnknownMsgType
	}
}

func decodeNewOrder(body []byte) (types.OrderRequest, error) {
	if len(body) < newOrderBodySize {
		return types.OrderRequest{}, ErrIncompleteBody
	}

	orderID := binary.LittleEndian.Uint64(body[0:8])
	symbolID := binary.LittleEndian.Uint32(body[8:12])
	priceTicks := binary.LittleEndian.Uint32(body[12:16])
	quantity := binary.LittleEndian.Uint32(body[16:20])
	sideByte := body[20]
	typeByte := body[21]
	tifByte := body[22]
	// body[23] is pad, ignored.

	side, err := decodeSide(sideByte)
	if err != nil {
		return types.OrderRequest{}, err
	}
	orderType, err := decodeOrderType(typeByte)
	if err != nil {
		return types.OrderRequest{}, err
	}
	tif, err := decodeTIF(tifByte)
	if err != nil {
		return types.OrderRequest{}, err
	}

	return types.OrderRequest{
		Kind:     types.RequestNewOrder,
		SymbolID: symbolID,
		Order: types.Order{
			ID:       orderID,
			SymbolID: symbolID,
			Side:     side,
			Type:     orderType,
			TIF:      tif,
			Price:    types.PriceFromTicks(priceTicks),
			Quantity: quantity,
		},
	}, nil
}

func decodeCancel(body []byte) (types.OrderRequest, error) {
	if len(body) < cancelBodySize {
		return types.OrderRequest{}, ErrIncompleteBody
	}
	orderID := binary.LittleEndian.Uint64(body[0:8])
	symbolID := binary.LittleEndian.Uint32(body[8:12])
	// body[12:16] is pad, ignored.

	return types.OrderRequest{
		Kind:     types.RequestCancelOrder,
		CancelID: orderID,
		SymbolID: symbolID,
	}, nil
}

func decodeSide(b byte) (types.Side, error) {
	switch b {
	case 0:
		return types.Buy, nil
	case 1:
		return types.Sell, nil
	default:
		return 0, fmt.Errorf("%w: side=%d", ErrInvalidEnum, b)
	}
}

func decodeOrderType(b byte) (types.OrderType, error) {
	switch b {
	case 0:
		return types.Limit, nil
	case 1:
		return types.Market, nil
	default:
		return 0, fmt.Errorf("%w: order_type=%d", ErrInvalidEnum, b)
	}
}

func decodeTIF(b byte) (types.TimeInForce, error) {
	switch b {
	case 0:
		return types.GTC, nil
	case 1:
		return types.IOC, nil
	case 2:
		return types.FOK, nil
	default:
		return 0, fmt.Errorf("%w: tif=%d", ErrInvalidEnum, b)
	}
}

// EncodeNewOrder builds a complete NewOrder frame for the given order. It's
// primarily used by the generator and by tests exercising round-trip
// encode/decode.
func EncodeNewOrder(order types.Order) []byte {
	buf := make([]byte, HeaderSize+newOrderBodySize)
	writeHeader(buf, MsgNewOrder, HeaderSize+newOrderBodySize)

	body := buf[HeaderSize:]
	binary.LittleEndian.PutUint64(body[0:8], order.ID)
	binary.LittleEndian.PutUint32(body[8:12], order.SymbolID)
	binary.LittleEndian.PutUint32(body[12:16], order.Price.Ticks())
	binary.LittleEndian.PutUint32(body[16:20], order.Quantity)
	body[20] = byte(order.Side)
	body[21] = byte(order.Type)
	body[22] = byte(order.TIF)
	body[23] = 0

	return buf
}

// EncodeCancel builds a complete Cancel frame for orderID.
func EncodeCancel(orderID uint64, symbolID uint32) []byte {
	buf := make([]byte, HeaderSize+cancelBodySize)
	writeHeader(buf, MsgCancel, HeaderSize+cancelBodySize)

	body := buf[HeaderSize:]
	binary.LittleEndian.PutUint64(body[0:8], orderID)
	binary.LittleEndian.PutUint32(body[8:12], symbolID)
	binary.LittleEndian.PutUint32(body[12:16], 0)

	return buf
}

func writeHeader(buf []byte, msgType MsgType, totalLen int) {
	binary.LittleEndian.PutUint64(buf[0:8], uint64(totalLen))
	buf[8] = byte(msgType)
	buf[9] = CurrentVersion
}
