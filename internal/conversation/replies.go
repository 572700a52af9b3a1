package conversation

import (
	"fmt"
	"strings"
	"time"

	"github.com/sazaba/wppai-server-sub000/internal/catalog"
	"github.com/sazaba/wppai-server-sub000/internal/schedule"
)

// Confirmation is the structured payload returned alongside the final reply
// once an appointment is booked.
type Confirmation struct {
	AppointmentID string `json:"appointmentId"`
	ServiceName   string `json:"serviceName"`
	StartLabel    string `json:"startLabel"`
	Status        string `json:"status"`
}

var spanishWeekdays = [...]string{
	"domingo", "lunes", "martes", "miércoles", "jueves", "viernes", "sábado",
}

var spanishMonths = [...]string{
	"", "enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

// StartLabel renders an instant as a Spanish date-time phrase in the tenant's
// zone, e.g. "lunes 16 de junio a las 09:00".
func StartLabel(t time.Time, loc *time.Location) string {
	local := t.In(loc)
	return fmt.Sprintf("%s %d de %s a las %02d:%02d",
		spanishWeekdays[local.Weekday()], local.Day(), spanishMonths[local.Month()],
		local.Hour(), local.Minute())
}

func replyAskService(services []catalog.Service) string {
	var b strings.Builder
	b.WriteString("¡Hola! ¿Qué servicio deseas agendar?\n")
	for _, s := range services {
		b.WriteString("• ")
		b.WriteString(s.Name)
		if s.PriceMin != nil {
			if s.PriceMax != nil && *s.PriceMax > *s.PriceMin {
				fmt.Fprintf(&b, " ($%d - $%d)", *s.PriceMin, *s.PriceMax)
			} else {
				fmt.Fprintf(&b, " ($%d)", *s.PriceMin)
			}
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func replyServiceNotFound() string {
	return "No encontré ese servicio. ¿Me dices cuál de los servicios de la lista te interesa?"
}

func replyAskWhen(serviceName string) string {
	return fmt.Sprintf("Perfecto, %s. ¿Para qué día te gustaría la cita? Puedes decir \"mañana\", \"el viernes\" o una fecha.", serviceName)
}

func replyDateNotUnderstood() string {
	return "No entendí la fecha. ¿Me la repites? Por ejemplo: \"mañana\", \"el próximo jueves\" o \"14 de marzo\"."
}

func replySlots(slots []schedule.Slot, loc *time.Location) string {
	var b strings.Builder
	b.WriteString("Estos son los horarios disponibles:\n")
	for _, s := range slots {
		fmt.Fprintf(&b, "%d. %s\n", s.Index, StartLabel(s.Start, loc))
	}
	b.WriteString("Responde con el número de tu preferencia.")
	return b.String()
}

func replyNoSlots(date schedule.CivilDate) string {
	return fmt.Sprintf("Lo siento, no tengo horarios disponibles cerca del %s. ¿Quieres intentar con otra fecha?", date)
}

func replySlotNotUnderstood(max int) string {
	return fmt.Sprintf("No entendí tu elección. Responde con un número del 1 al %d.", max)
}

func replySlotTaken() string {
	return "Ese horario acaba de ocuparse. Estos son los horarios que siguen disponibles:\n"
}

func replyAskContact() string {
	return "¡Excelente! Para confirmar tu cita, ¿me compartes tu nombre y número de teléfono?"
}

func replyContactIncomplete() string {
	return "Me falta un dato. Envíame tu nombre y tu número de teléfono, por ejemplo: \"Ana Gómez, 300 111 2233\"."
}

func replyConfirmed(serviceName, startLabel string, pending bool) string {
	if pending {
		return fmt.Sprintf("¡Listo! Tu cita de %s quedó registrada para el %s. Te confirmaremos en breve.", serviceName, startLabel)
	}
	return fmt.Sprintf("¡Listo! Tu cita de %s quedó confirmada para el %s. ¡Te esperamos!", serviceName, startLabel)
}

func replyAborted() string {
	return "Entendido, cancelé el proceso. Escríbeme cuando quieras agendar de nuevo."
}

func replyNoServices() string {
	return "Por el momento no tenemos servicios disponibles para agendar. Intenta más tarde."
}

func replyBeyondWindow(days int) string {
	return fmt.Sprintf("Solo puedo agendar citas dentro de los próximos %d días. ¿Te sirve una fecha más cercana?", days)
}
