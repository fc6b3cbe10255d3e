package markup

import (
	"strconv"

	tele "gopkg.in/telebot.v3"
)

// Callback uniques of the dispatcher panel. Buttons carrying an argument get it in Data.
var (
	PanelHomeBtn      = Data("🏠 Панель", "panel-home")
	PanelAskCountBtn  = Data("✏️ Задать число водителей", "panel-drivers-ask")
	PanelIncBtn       = Data("➕ 1", "panel-drivers-inc")
	PanelDecBtn       = Data("➖ 1", "panel-drivers-dec")
	PanelCancelBtn    = Data("✖️ Отмена", "panel-cancel")
	PanelRequestsBtn  = Data("📋 Заявки", "panel-requests")
	PanelRequestBtn   = Data("Заявка", "panel-request")
	PanelSetStatusBtn = Data("Статус", "panel-status")
)

// PanelListLimits are the listing sizes offered by the panel.
var PanelListLimits = []int{10, 20, 50}

func RequestsBtn(limit int) tele.Btn {
	return Data("📋 "+strconv.Itoa(limit), PanelRequestsBtn.Unique, strconv.Itoa(limit))
}

func RequestBtn(text string, id int64) tele.Btn {
	return Data(text, PanelRequestBtn.Unique, strconv.FormatInt(id, 10))
}

func SetStatusBtn(text string, id int64, status string) tele.Btn {
	return Data(text, PanelSetStatusBtn.Unique, strconv.FormatInt(id, 10), status)
}
