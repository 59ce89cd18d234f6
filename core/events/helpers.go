package events

import (
	"encoding/hex"
	"math/big"
	"strconv"
)

func hexAddr(addr [20]byte) string {
	return "0x" + hex.EncodeToString(addr[:])
}

func zeroAddr(addr [20]byte) bool {
	return addr == [20]byte{}
}

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func uintString(v uint64) string {
	return strconv.FormatUint(v, 10)
}
