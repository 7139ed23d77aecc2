package messages

import (
	"strconv"
	"strings"
)

// Идентификаторы кнопок. Кнопки с аргументом кодируются как <префикс><аргумент>.
const (
	CallbackZone        = "zone_"
	CallbackProduct     = "prod_"
	CallbackAddCart     = "addcart_"
	CallbackAdminAccept = "adm_accept_"
	CallbackAdminReject = "adm_reject_"
	CallbackAdminDone   = "adm_done_"
	CallbackAdminPage   = "adm_page_"

	CallbackMenu        = "menu"
	CallbackCart        = "cart"
	CallbackClearCart   = "clear_cart"
	CallbackCheckout    = "checkout"
	CallbackHistory     = "history"
	CallbackConfirm     = "confirm_order"
	CallbackCancel      = "cancel_order"
	CallbackChangeZone  = "change_zone"
	CallbackAdminAdd    = "adm_add"
	CallbackAdminOrders = "adm_orders"
	CallbackAdminClear  = "adm_clear"
	CallbackNoPhoto     = "adm_nophoto"
)

// prefixes упорядочены так, чтобы более длинные префиксы проверялись раньше.
var prefixes = []string{
	CallbackAdminAccept,
	CallbackAdminReject,
	CallbackAdminDone,
	CallbackAdminPage,
	CallbackAddCart,
	CallbackProduct,
	CallbackZone,
}

// ParseCallback разбирает идентификатор кнопки на действие и аргумент.
// Для кнопок без аргумента возвращается сам идентификатор и пустой аргумент.
func ParseCallback(data string) (action, arg string) {
	for _, p := range prefixes {
		if strings.HasPrefix(data, p) {
			return p, strings.TrimPrefix(data, p)
		}
	}
	return data, ""
}

func pageData(index int) string {
	return CallbackAdminPage + strconv.Itoa(index)
}
