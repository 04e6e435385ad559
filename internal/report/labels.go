package report

import "batchtrack.io/tracker/internal/domain"

// Locales.
const (
	LocaleEN = "en"
	LocaleRU = "ru"
)

// StatusFree labels a mixer with no active ticket.
const StatusFree = "free"

// Labels holds display strings for one locale.
type Labels struct {
	Locale   string
	statuses map[string]string
	steps    map[domain.Step]string
	// Columns are the export headers, in column order.
	Columns []string
	Sheet   string

	Approved   string
	Rejected   string
	DayShift   string
	NightShift string

	// Ticket notification captions.
	MsgTicket      string
	MsgProduct     string
	MsgMixer       string
	MsgStatus      string
	MsgResponsible string
	MsgStep        string
	MsgCorrections string
	MsgNote        string
	MsgOverdue     map[string]string
}

// Status returns the display label for a ticket status or StatusFree.
// Unknown values are returned unchanged.
func (l Labels) Status(s string) string {
	if v, ok := l.statuses[s]; ok {
		return v
	}
	return s
}

// Step returns the display label for a step. Unknown steps are returned
// unchanged.
func (l Labels) Step(s domain.Step) string {
	if v, ok := l.steps[s]; ok {
		return v
	}
	return string(s)
}

// Shift returns the display name of a shift.
func (l Labels) Shift(day bool) string {
	if day {
		return l.DayShift
	}
	return l.NightShift
}

// LabelsFor returns the labels for locale, falling back to English.
func LabelsFor(locale string) Labels {
	if locale == LocaleRU {
		return ruLabels
	}
	return enLabels
}

var enLabels = Labels{
	Locale: LocaleEN,
	statuses: map[string]string{
		StatusFree:                              "Free",
		string(domain.StatusProductionStarted):  "Production started",
		string(domain.StatusAwaitingSample):     "Awaiting sample",
		string(domain.StatusSampleSent):         "Sample sent",
		string(domain.StatusSampleReceived):     "Sample received",
		string(domain.StatusAnalysisInProgress): "Analysis in progress",
		string(domain.StatusCorrectionRequired): "Correction required",
		string(domain.StatusAwaitingDischarge):  "Awaiting discharge",
		string(domain.StatusCompleted):          "Completed",
		domain.AnalysisResultApproved:           "Approved",
	},
	steps: map[domain.Step]string{
		domain.StepAwaitingSample:       "Awaiting sample",
		domain.StepAwaitingLabReception: "Awaiting lab",
		domain.StepAnalysisInProgress:   "Analysis",
		domain.StepAwaitingDischarge:    "Awaiting discharge",
		domain.StepAwaitingCorrection:   "Awaiting correction",
		domain.StepCompleted:            "Completed",
		domain.StepManuallyClosed:       "Closed manually",
	},
	Columns: []string{
		"Ticket ID", "Created", "Completed", "Product", "Brand", "Technology",
		"Mixer", "Status", "Current step", "User", "Corrections",
		"Correction history", "Analyses", "Analysis history",
		"Production time, min", "Total production time",
	},
	Sheet:          "Tickets",
	Approved:       "Approved",
	Rejected:       "Rejected",
	DayShift:       "day",
	NightShift:     "night",
	MsgTicket:      "Ticket",
	MsgProduct:     "Product",
	MsgMixer:       "Mixer",
	MsgStatus:      "Status",
	MsgResponsible: "Responsible",
	MsgStep:        "Step",
	MsgCorrections: "Corrections",
	MsgNote:        "Note",
	MsgOverdue: map[string]string{
		"production": "OVERDUE! Production did not send the sample in time",
		"lab":        "OVERDUE! The lab did not finish the analysis in time",
	},
}

var ruLabels = Labels{
	Locale: LocaleRU,
	statuses: map[string]string{
		StatusFree:                              "Свободен",
		string(domain.StatusProductionStarted):  "Производство начато",
		string(domain.StatusAwaitingSample):     "Ожидание пробы",
		string(domain.StatusSampleSent):         "Проба отправлена",
		string(domain.StatusSampleReceived):     "Проба принята",
		string(domain.StatusAnalysisInProgress): "Анализ в процессе",
		string(domain.StatusCorrectionRequired): "Требуется корректировка",
		string(domain.StatusAwaitingDischarge):  "Ожидание откачки",
		string(domain.StatusCompleted):          "Завершен",
		domain.AnalysisResultApproved:           "Допущен",
	},
	steps: map[domain.Step]string{
		domain.StepAwaitingSample:       "Ожид. пробу",
		domain.StepAwaitingLabReception: "Ожид. лаб",
		domain.StepAnalysisInProgress:   "Анализ",
		domain.StepAwaitingDischarge:    "Ожид. откачки",
		domain.StepAwaitingCorrection:   "Ожид. исправления",
		domain.StepCompleted:            "Завершен",
		domain.StepManuallyClosed:       "Закрыт вручную",
	},
	Columns: []string{
		"ID_тикета", "Дата_создания_МСК", "Дата_завершения_МСК", "Продукт", "Бренд", "Технология",
		"Миксер", "Статус", "Текущий_шаг", "Пользователь", "Количество_корректировок",
		"История_корректировок", "Количество_анализов", "История_анализов",
		"Время_производства_мин", "Общее_время_производства",
	},
	Sheet:          "Тикеты",
	Approved:       "Допущен",
	Rejected:       "Отклонен",
	DayShift:       "дневная",
	NightShift:     "ночная",
	MsgTicket:      "Тикет",
	MsgProduct:     "Продукт",
	MsgMixer:       "Миксер",
	MsgStatus:      "Статус",
	MsgResponsible: "Ответственный",
	MsgStep:        "Шаг",
	MsgCorrections: "Корректировок",
	MsgNote:        "Примечание",
	MsgOverdue: map[string]string{
		"production": "ПРОСРОЧКА! Производство не отправило пробу вовремя",
		"lab":        "ПРОСРОЧКА! Лаборатория не провела анализ вовремя",
	},
}
