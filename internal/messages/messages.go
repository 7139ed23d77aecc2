// Package messages содержит тексты сообщений бота и раскладки кнопок.
package messages

import (
	"fmt"
	"strings"

	"github.com/mmeshcher/dolezza-bot/internal/chat"
	"github.com/mmeshcher/dolezza-bot/internal/model"
	"github.com/mmeshcher/dolezza-bot/internal/zone"
)

// Money форматирует сумму в CUP.
func Money(v int64) string {
	return fmt.Sprintf("%d CUP", v)
}

const (
	WelcomeCustomer = "¡Bienvenido a Dolezza 🍬!\nElige tu zona de entrega para ver el menú de hoy."
	WelcomeAdmin    = "Hola Admin de Dolezza 👋.\n" +
		"/menu — ver el menú actual\n" +
		"/agregar <dulce> — añadir un producto\n" +
		"/borrar_menu — limpiar el menú\n" +
		"/pedidos — revisar pedidos\n" +
		"/cancel — cancelar la operación en curso"

	ChooseZone        = "¿A qué zona enviamos tu pedido?"
	NoZone            = "Primero elige tu zona de entrega."
	MenuEmpty         = "Hoy no hay dulces disponibles aún. ☹️"
	NotOnMenu         = "Ese dulce no está en el menú de hoy. Revisa /menu e intenta de nuevo."
	CartEmpty         = "Tu carrito está vacío."
	CartCleared       = "🗑️ Carrito vaciado."
	AskName           = "¿A nombre de quién va el pedido?"
	AskAddress        = "Escribe la dirección de entrega."
	AskPhone          = "Escribe un teléfono de contacto."
	InvalidPhone      = "Ese teléfono no parece válido. Escribe solo números, por ejemplo +53 5 555 5555."
	EmptyText         = "Necesito un texto, inténtalo de nuevo."
	PressButton       = "Usa los botones del resumen para confirmar o cancelar."
	CheckoutCancelled = "Pedido cancelado. Tu carrito sigue guardado."
	Cancelled         = "Operación cancelada."
	NothingToCancel   = "No hay nada que cancelar."
	FinishCurrentStep = "Termina el paso actual o usa /cancel."
	AdminOnly         = "❌ Solo el admin puede hacer esto."
	OrderNotFound     = "Error: pedido no encontrado."
	ProductNotFound   = "Ese producto ya no está en el menú."
	NoOrders          = "No hay pedidos pendientes."
	NoHistory         = "Todavía no tienes pedidos."
	UnknownCommand    = "No conozco ese comando. Usa /start."
	UnknownButton     = "Esta opción ya no está disponible."
	StorageFailure    = "No pudimos guardar los cambios. Inténtalo de nuevo en un momento."
	UnexpectedPhoto   = "No esperaba una foto ahora."

	AskProductName  = "¿Cómo se llama el dulce?"
	AskProductPrice = "¿Cuál es el precio en CUP?"
	InvalidPrice    = "El precio debe ser un número entero mayor que cero."
	AskProductPhoto = "Envía una foto del dulce o pulsa «Sin foto»."
)

// ZoneSelected подтверждает выбор зоны.
func ZoneSelected(name string, fee int64) string {
	return fmt.Sprintf("📍 Zona: %s (envío %s).", name, Money(fee))
}

// Menu перечисляет каталог.
func Menu(products []model.Product) string {
	if len(products) == 0 {
		return MenuEmpty
	}
	var b strings.Builder
	b.WriteString("🍬 Dulces disponibles hoy:\n\n")
	for i, p := range products {
		fmt.Fprintf(&b, "%d. %s — %s\n", i+1, p.Name, Money(p.Price))
	}
	b.WriteString("\nToca un dulce para verlo o escribe su nombre para añadirlo al carrito.")
	return b.String()
}

// ProductCaption описывает позицию каталога.
func ProductCaption(p model.Product) string {
	return fmt.Sprintf("%s\nPrecio: %s", p.Name, Money(p.Price))
}

// AddedToCart подтверждает добавление товара.
func AddedToCart(name string, quantity int) string {
	return fmt.Sprintf("✅ %s añadido al carrito (x%d).", name, quantity)
}

func writeLines(b *strings.Builder, lines []model.CartLine) {
	for _, l := range lines {
		fmt.Fprintf(b, "• %s x%d — %s\n", l.Name, l.Quantity, Money(l.Amount()))
	}
}

// Cart показывает содержимое корзины.
func Cart(lines []model.CartLine, subtotal int64, zoneName string) string {
	if len(lines) == 0 {
		return CartEmpty
	}
	var b strings.Builder
	b.WriteString("🛒 Tu carrito:\n")
	writeLines(&b, lines)
	fmt.Fprintf(&b, "\nSubtotal: %s", Money(subtotal))
	if zoneName != "" {
		fee := zone.FeeFor(zoneName)
		fmt.Fprintf(&b, "\nEnvío (%s): %s\nTotal: %s", zoneName, Money(fee), Money(subtotal+fee))
	}
	return b.String()
}

// CheckoutSummary показывает данные заказа перед подтверждением.
func CheckoutSummary(name, address, phone, zoneName string, lines []model.CartLine, subtotal int64) string {
	fee := zone.FeeFor(zoneName)
	var b strings.Builder
	b.WriteString("📝 Revisa tu pedido:\n")
	writeLines(&b, lines)
	fmt.Fprintf(&b, "\nNombre: %s\nDirección: %s\nTeléfono: %s\nZona: %s\n", name, address, phone, zoneName)
	fmt.Fprintf(&b, "Subtotal: %s\nEnvío: %s\nTotal: %s", Money(subtotal), Money(fee), Money(subtotal+fee))
	return b.String()
}

// OrderPlaced подтверждает клиенту создание заказа.
func OrderPlaced(o model.Order) string {
	return fmt.Sprintf("✅ ¡Pedido recibido!\nPedido #%s — total %s.\nEspera a que Dolezza confirme tu pedido.",
		o.OrderID, Money(o.Total))
}

// OrderDetails описывает заказ для администратора.
func OrderDetails(o model.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Pedido #%s\nCliente: %s\nTeléfono: %s\nDirección: %s\nZona: %s\nFecha: %s\n",
		o.OrderID, o.CustomerName, o.Phone, o.Address, o.Zone, o.Date)
	writeLines(&b, o.Items)
	if o.Item != "" {
		fmt.Fprintf(&b, "• %s\n", o.Item)
	}
	fmt.Fprintf(&b, "Subtotal: %s\nEnvío: %s\nTotal: %s\nEstado: %s",
		Money(o.Subtotal), Money(o.DeliveryFee), Money(o.Total), StatusName(o.Status))
	return b.String()
}

// NewOrderForAdmins возвращает уведомление администраторам о новом заказе.
func NewOrderForAdmins(o model.Order) string {
	return "🆕 Nuevo pedido\n\n" + OrderDetails(o)
}

// StatusName возвращает название статуса для людей.
func StatusName(s model.OrderStatus) string {
	switch s {
	case model.OrderStatusPending:
		return "PENDIENTE"
	case model.OrderStatusAccepted:
		return "ACEPTADO"
	case model.OrderStatusRejected:
		return "RECHAZADO"
	case model.OrderStatusDelivered:
		return "ENTREGADO"
	default:
		return string(s)
	}
}

// StatusUpdate возвращает уведомление клиента о смене статуса заказа.
func StatusUpdate(o model.Order) string {
	switch o.Status {
	case model.OrderStatusAccepted:
		return fmt.Sprintf("✅ Tu pedido #%s ha sido ACEPTADO. ¡Gracias por comprar en Dolezza! 🍬", o.OrderID)
	case model.OrderStatusRejected:
		return fmt.Sprintf("❌ Lo sentimos, tu pedido #%s no se pudo procesar en este momento.", o.OrderID)
	case model.OrderStatusDelivered:
		return fmt.Sprintf("📦 Tu pedido #%s fue entregado. ¡Buen provecho!", o.OrderID)
	default:
		return fmt.Sprintf("Tu pedido #%s está %s.", o.OrderID, StatusName(o.Status))
	}
}

// AdminOutcome возвращает отметку в сообщении администратора после действия.
func AdminOutcome(o model.Order) string {
	return fmt.Sprintf("%s\n\n---> Pedido %s.", OrderDetails(o), strings.ToLower(StatusName(o.Status)))
}

// IllegalTransition сообщает администратору, что действие уже неприменимо.
func IllegalTransition(o model.Order) string {
	return fmt.Sprintf("El pedido #%s ya está %s; no se puede cambiar.", o.OrderID, StatusName(o.Status))
}

// QueueCard показывает один заказ из очереди администратора.
func QueueCard(o model.Order, index, total int) string {
	return fmt.Sprintf("(%d/%d)\n%s", index+1, total, OrderDetails(o))
}

// History показывает последние заказы клиента.
func History(orders []model.Order) string {
	if len(orders) == 0 {
		return NoHistory
	}
	var b strings.Builder
	b.WriteString("🧾 Tus últimos pedidos:\n")
	for _, o := range orders {
		fmt.Fprintf(&b, "\n#%s (%s) — %s — %s", o.OrderID, o.Date, Money(o.Total), StatusName(o.Status))
	}
	return b.String()
}

// ProductAdded подтверждает добавление позиции в каталог.
func ProductAdded(p model.Product) string {
	return fmt.Sprintf("✅ Se agregó: %s (%s)", p.Name, Money(p.Price))
}

// CatalogCleared подтверждает очистку каталога.
func CatalogCleared(removed int) string {
	return fmt.Sprintf("🗑️ Menú limpio (%d productos eliminados). Listo para cargar los dulces de hoy.", removed)
}

// ZoneKeyboard возвращает клавиатуру: выбор зоны доставки, по две кнопки в ряд.
func ZoneKeyboard() chat.Keyboard {
	var kb chat.Keyboard
	var row []chat.Button
	for _, z := range zone.All() {
		row = append(row, chat.Button{Text: z.Name, Data: CallbackZone + z.Name})
		if len(row) == 2 {
			kb = append(kb, row)
			row = nil
		}
	}
	if len(row) > 0 {
		kb = append(kb, row)
	}
	return kb
}

// CustomerMenuKeyboard возвращает клавиатуру: основные действия клиента.
func CustomerMenuKeyboard() chat.Keyboard {
	return chat.Keyboard{
		chat.Row(
			chat.Button{Text: "🍬 Menú", Data: CallbackMenu},
			chat.Button{Text: "🛒 Carrito", Data: CallbackCart},
		),
		chat.Row(
			chat.Button{Text: "🧾 Mis pedidos", Data: CallbackHistory},
			chat.Button{Text: "📍 Cambiar zona", Data: CallbackChangeZone},
		),
	}
}

// CatalogKeyboard возвращает клавиатуру с кнопкой на каждую позицию и переход в корзину.
func CatalogKeyboard(products []model.Product) chat.Keyboard {
	kb := make(chat.Keyboard, 0, len(products)+1)
	for _, p := range products {
		kb = append(kb, chat.Row(chat.Button{
			Text: fmt.Sprintf("%s — %s", p.Name, Money(p.Price)),
			Data: CallbackProduct + p.ID,
		}))
	}
	kb = append(kb, chat.Row(chat.Button{Text: "🛒 Ver carrito", Data: CallbackCart}))
	return kb
}

// ProductKeyboard возвращает клавиатуру: добавление позиции в корзину.
func ProductKeyboard(p model.Product) chat.Keyboard {
	return chat.Keyboard{
		chat.Row(chat.Button{Text: "➕ Añadir al carrito", Data: CallbackAddCart + p.ID}),
		chat.Row(
			chat.Button{Text: "🍬 Menú", Data: CallbackMenu},
			chat.Button{Text: "🛒 Carrito", Data: CallbackCart},
		),
	}
}

// CartKeyboard возвращает клавиатуру: действия с корзиной.
func CartKeyboard() chat.Keyboard {
	return chat.Keyboard{
		chat.Row(chat.Button{Text: "✅ Hacer pedido", Data: CallbackCheckout}),
		chat.Row(
			chat.Button{Text: "🗑️ Vaciar", Data: CallbackClearCart},
			chat.Button{Text: "🍬 Seguir comprando", Data: CallbackMenu},
		),
	}
}

// ConfirmKeyboard возвращает клавиатуру: подтверждение заказа.
func ConfirmKeyboard() chat.Keyboard {
	return chat.Keyboard{
		chat.Row(
			chat.Button{Text: "✅ Confirmar", Data: CallbackConfirm},
			chat.Button{Text: "❌ Cancelar", Data: CallbackCancel},
		),
	}
}

// AdminMenuKeyboard возвращает клавиатуру: действия администратора.
func AdminMenuKeyboard() chat.Keyboard {
	return chat.Keyboard{
		chat.Row(
			chat.Button{Text: "➕ Agregar dulce", Data: CallbackAdminAdd},
			chat.Button{Text: "📋 Pedidos", Data: CallbackAdminOrders},
		),
		chat.Row(chat.Button{Text: "🗑️ Borrar menú", Data: CallbackAdminClear}),
	}
}

// SkipPhotoKeyboard возвращает клавиатуру: пропуск шага с фото.
func SkipPhotoKeyboard() chat.Keyboard {
	return chat.Keyboard{chat.Row(chat.Button{Text: "Sin foto", Data: CallbackNoPhoto})}
}

// OrderActionsKeyboard возвращает клавиатуру: действия над заказом в зависимости от статуса.
func OrderActionsKeyboard(o model.Order) chat.Keyboard {
	switch o.Status {
	case model.OrderStatusPending:
		return chat.Keyboard{chat.Row(
			chat.Button{Text: "✅ Aceptar", Data: CallbackAdminAccept + o.OrderID},
			chat.Button{Text: "❌ Rechazar", Data: CallbackAdminReject + o.OrderID},
		)}
	case model.OrderStatusAccepted:
		return chat.Keyboard{chat.Row(
			chat.Button{Text: "📦 Entregado", Data: CallbackAdminDone + o.OrderID},
		)}
	default:
		return nil
	}
}

// QueueKeyboard возвращает клавиатуру: действия над заказом и навигация по очереди.
func QueueKeyboard(o model.Order, index, total int) chat.Keyboard {
	kb := OrderActionsKeyboard(o)
	var nav []chat.Button
	if index > 0 {
		nav = append(nav, chat.Button{Text: "⬅️ Anterior", Data: pageData(index - 1)})
	}
	if index < total-1 {
		nav = append(nav, chat.Button{Text: "Siguiente ➡️", Data: pageData(index + 1)})
	}
	if len(nav) > 0 {
		kb = append(kb, nav)
	}
	return kb
}
