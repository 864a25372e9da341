package sheetsclient

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jakechorley/hourbank/internal/config"
	"github.com/jakechorley/hourbank/pkg/core/model"
)

// ValuesClient is the part of the sheets API the collaborator tables use
type ValuesClient interface {
	GetValues(spreadsheetID, sheetRange string) ([][]interface{}, error)
	UpdateValues(spreadsheetID, sheetRange string, values [][]interface{}) error
	ClearValues(spreadsheetID, sheetRange string) error
}

// Header aliases of the capacity tables. When a header is missing the column falls back to
// its fixed position.
var (
	campaignHeaders  = []string{"Campaña", "Campana", "Campaign"}
	dateHeaders      = []string{"Fecha", "Date"}
	slotHeaders      = []string{"FRANJA", "Franja", "Franja horaria", "Slot"}
	remainingHeaders = []string{"Disponible", "Disponibles", "Remaining"}

	employeeHeaders = []string{"NºEmpleado", "Nº Empleado", "Num empleado", "Numero empleado", "Employee number"}
	emailHeaders    = []string{"email", "Correo", "Email"}
)

const (
	capacityCampaignCol  = 0
	capacityDateCol      = 1
	capacitySlotCol      = 3
	capacityRemainingCol = 5
)

// Tables reads the spreadsheets the engine does not own: capacity per pool, the overtime
// allow-list, the employee roster, and the locker export it writes
type Tables struct {
	client ValuesClient
	cfg    *config.Config
}

func NewTables(client ValuesClient, cfg *config.Config) *Tables {
	return &Tables{client: client, cfg: cfg}
}

// CapacityRows reads the capacity table of pool. Rows with an unreadable date keep a zero
// date and are skipped by the availability index.
func (t *Tables) CapacityRows(pool model.PoolKind) ([]model.CapacityRow, error) {
	tab := t.cfg.CapacityTab(pool)
	values, err := t.client.GetValues(t.cfg.CapacitySheetID, tab)
	if err != nil {
		return nil, fmt.Errorf("failed to get capacity data for %s: %w", pool, err)
	}

	return parseCapacity(values), nil
}

func parseCapacity(values [][]interface{}) []model.CapacityRow {
	if len(values) < 2 {
		return nil
	}

	header := values[0]
	campaignCol := columnIndex(header, campaignHeaders, capacityCampaignCol)
	dateCol := columnIndex(header, dateHeaders, capacityDateCol)
	slotCol := columnIndex(header, slotHeaders, capacitySlotCol)
	remainingCol := columnIndex(header, remainingHeaders, capacityRemainingCol)

	rows := make([]model.CapacityRow, 0, len(values)-1)
	for _, raw := range values[1:] {
		campaign := cell(raw, campaignCol)
		if campaign == "" {
			continue
		}

		date, _ := model.ParseDate(cell(raw, dateCol))
		rows = append(rows, model.CapacityRow{
			Campaign:  campaign,
			Date:      date,
			SlotLabel: cell(raw, slotCol),
			Remaining: parseRemaining(cell(raw, remainingCol)),
		})
	}
	return rows
}

// parseRemaining reads counts written as "3", "3.0" or "3,0". Anything else is no capacity.
func parseRemaining(raw string) int {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	if raw == "" {
		return 0
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return int(f)
}

// OvertimeCampaigns returns the allow-list of campaigns that may use the overtime pool,
// trimmed and lower-cased. The first row is a header.
func (t *Tables) OvertimeCampaigns() (map[string]struct{}, error) {
	values, err := t.client.GetValues(t.cfg.AllowListSheetID, t.cfg.AllowListTab)
	if err != nil {
		return nil, fmt.Errorf("failed to get overtime allow-list: %w", err)
	}

	allowed := make(map[string]struct{})
	for i, row := range values {
		if i == 0 {
			continue
		}
		name := strings.ToLower(cell(row, 0))
		if name != "" {
			allowed[name] = struct{}{}
		}
	}
	return allowed, nil
}

// EmployeeNumbers maps lower-cased email to employee number. Without a roster it is empty.
func (t *Tables) EmployeeNumbers() (map[string]string, error) {
	numbers := make(map[string]string)
	if t.cfg.RosterSheetID == "" {
		return numbers, nil
	}

	values, err := t.client.GetValues(t.cfg.RosterSheetID, t.cfg.RosterTab)
	if err != nil {
		return nil, fmt.Errorf("failed to get roster: %w", err)
	}
	if len(values) == 0 {
		return numbers, nil
	}

	employeeCol := columnIndex(values[0], employeeHeaders, 0)
	emailCol := columnIndex(values[0], emailHeaders, 1)
	for _, row := range values {
		email := strings.ToLower(cell(row, emailCol))
		if !strings.Contains(email, "@") {
			continue
		}
		numbers[email] = cell(row, employeeCol)
	}
	return numbers, nil
}

// WriteLocker replaces the contents of the locker tab with header and rows
func (t *Tables) WriteLocker(header []string, rows [][]string) error {
	if !t.cfg.LockerEnabled() {
		return fmt.Errorf("locker export is not configured")
	}

	if err := t.client.ClearValues(t.cfg.LockerSheetID, t.cfg.LockerTab); err != nil {
		return fmt.Errorf("failed to clear locker tab: %w", err)
	}

	out := make([][]interface{}, 0, len(rows)+1)
	out = append(out, toCells(header))
	for _, row := range rows {
		out = append(out, toCells(row))
	}

	if err := t.client.UpdateValues(t.cfg.LockerSheetID, fmt.Sprintf("%s!A1", t.cfg.LockerTab), out); err != nil {
		return fmt.Errorf("failed to write locker tab: %w", err)
	}
	return nil
}

func toCells(row []string) []interface{} {
	cells := make([]interface{}, len(row))
	for i, v := range row {
		cells[i] = v
	}
	return cells
}

// columnIndex returns the position of the first header matching one of names (trimmed,
// case-insensitive), or fallback
func columnIndex(header []interface{}, names []string, fallback int) int {
	for _, name := range names {
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(fmt.Sprint(h)), name) {
				return i
			}
		}
	}
	return fallback
}

func cell(row []interface{}, i int) string {
	if i < 0 || i >= len(row) || row[i] == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(row[i]))
}
