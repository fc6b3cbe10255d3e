package notify

import (
	"fmt"
	"time"
)

const Welcome = `Ваш надежный помощник в любой ситуации на дороге — бот службы эвакуации!

Застряли на дороге? Автомобиль сломался или попал в аварию? Не тратьте время на поиски эвакуатора — наш бот сделает всё за вас!

С помощью нашего удобного сервиса вы сможете:
 • Быстро вызвать эвакуатор в любой точке города или за его пределами.
 • Получить точную информацию о времени прибытия и стоимости услуги.
 • Выбрать подходящий тип эвакуатора для вашего автомобиля.

Почему выбирают нас?
 • Круглосуточная работа 24/7.
 • Быстрая обработка запросов через бота.
 • Надежные и проверенные водители эвакуаторов.
 • Прозрачные цены без скрытых платежей.

Нажмите кнопку ниже, заполните форму — заявка придёт диспетчеру.
`

const (
	OpenForm        = "Откройте мини‑апп и отправьте заявку."
	OrderButton     = "Заказать эвакуатор"
	RequestAccepted = "Заявка отправлена, ожидайте, с вами свяжется диспетчер, обычно до 10 минут"
	RequestFailed   = "Не удалось отправить заявку. Попробуйте ещё раз через минуту."
)

// Cooldown tells the customer how long to wait, rounded up to whole seconds.
func Cooldown(window, remaining time.Duration) string {
	secs := int((remaining + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return fmt.Sprintf("Заявку можно отправлять не чаще 1 раза в %s.\nПопробуйте через %02d:%02d.",
		windowText(window), secs/60, secs%60)
}

func windowText(window time.Duration) string {
	if window%time.Minute == 0 {
		return fmt.Sprintf("%d %s", int(window/time.Minute), plural(int(window/time.Minute), "минуту", "минуты", "минут"))
	}
	secs := int(window / time.Second)
	return fmt.Sprintf("%d %s", secs, plural(secs, "секунду", "секунды", "секунд"))
}

func plural(n int, one, few, many string) string {
	n %= 100
	if n >= 11 && n <= 14 {
		return many
	}
	switch n % 10 {
	case 1:
		return one
	case 2, 3, 4:
		return few
	}
	return many
}
