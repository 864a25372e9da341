package model

import "strconv"

// DeriveKey builds the identity key of a reservation row: the five fields concatenated in
// fixed order with no separator.
func DeriveKey(campaign string, dateSerial int, slotLabel, requesterEmail string, kind PoolKind) string {
	return campaign + strconv.Itoa(dateSerial) + slotLabel + requesterEmail + string(kind)
}
