package model

import "fmt"

// CatalogKey identifies one ordered reference list.
type CatalogKey string

const (
	CatalogOperativeTypes CatalogKey = "operative_types"
	CatalogCorporations   CatalogKey = "corporations"
	CatalogCrimes         CatalogKey = "crimes"
	CatalogFaults         CatalogKey = "faults"
	CatalogRanks          CatalogKey = "ranks"
	CatalogMeetingTopics  CatalogKey = "meeting_topics"
	// CatalogColonies holds CatalogEntry values instead of strings.
	CatalogColonies CatalogKey = "colonies"
)

// StringCatalogs are the catalogs made of plain strings.
var StringCatalogs = []CatalogKey{
	CatalogOperativeTypes,
	CatalogCorporations,
	CatalogCrimes,
	CatalogFaults,
	CatalogRanks,
	CatalogMeetingTopics,
}

// ParseCatalogKey validates a string catalog name taken from a URL.
func ParseCatalogKey(s string) (CatalogKey, error) {
	for _, k := range StringCatalogs {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown catalog %q", s)
}

// StoreKey is the document key the catalog is persisted under.
func (k CatalogKey) StoreKey() string {
	return "catalog:" + string(k)
}

const (
	// OtherOperativeType lets the user type a free-text operative type.
	OtherOperativeType = "OTRO OPERATIVO"
	// OtherIncident lets the user type a free-text detention reason or crime.
	OtherIncident = "OTRO"
	// MeetingTypeMarker is contained in every neighbourhood meeting type.
	MeetingTypeMarker = "REUNION VECINAL"
)

// CatalogEntry is one colony of the colony catalog. (Region, Colony) is unique.
type CatalogEntry struct {
	Region   string `json:"region" binding:"required"`
	Quadrant string `json:"quadrant" binding:"required"`
	Colony   string `json:"colony" binding:"required"`
}

// Direction moves a catalog entry one slot.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// AppendCatalogRequest appends a value to a string catalog.
type AppendCatalogRequest struct {
	Value string `json:"value" binding:"required"`
}

// ReorderCatalogRequest swaps an entry with its neighbour.
type ReorderCatalogRequest struct {
	Index     int       `json:"index"`
	Direction Direction `json:"direction" binding:"required,oneof=up down"`
}

// DefaultCatalogs seed each string catalog the first time it is read.
var DefaultCatalogs = map[CatalogKey][]string{
	CatalogOperativeTypes: {
		"OPERATIVO CARRUSEL",
		"OPERATIVO ALCOHOLIMETRO",
		"OPERATIVO MOCHILA SEGURA",
		"OPERATIVO TRANSPORTE PUBLICO SEGURO",
		"OPERATIVO COMERCIO SEGURO",
		"OPERATIVO SENDERO SEGURO",
		"RECORRIDO DE PROXIMIDAD",
		"REUNION VECINAL",
		"REUNION VECINAL DE SEGUIMIENTO",
	},
	CatalogCorporations: {
		"GUARDIA NACIONAL",
		"POLICIA ESTATAL",
		"FISCALIA GENERAL DE JUSTICIA",
		"PROTECCION CIVIL",
		"SEDENA",
	},
	CatalogCrimes: {
		"ROBO A TRANSEUNTE",
		"ROBO DE VEHICULO",
		"ROBO A CASA HABITACION",
		"ROBO A NEGOCIO",
		"LESIONES",
		"PORTACION DE ARMA",
		"NARCOMENUDEO",
		"VIOLENCIA FAMILIAR",
	},
	CatalogFaults: {
		"INGERIR BEBIDAS ALCOHOLICAS EN VIA PUBLICA",
		"ALTERAR EL ORDEN PUBLICO",
		"ORINAR EN VIA PUBLICA",
		"FALTAS A LA AUTORIDAD",
		"CONDUCIR EN ESTADO DE EBRIEDAD",
	},
	CatalogRanks: {
		"PATRULLERO",
		"POLICIA",
		"POLICIA TERCERO",
		"POLICIA SEGUNDO",
		"POLICIA PRIMERO",
		"SUBOFICIAL",
		"OFICIAL",
		"SUBINSPECTOR",
		"INSPECTOR",
	},
	CatalogMeetingTopics: {
		"SEGURIDAD VECINAL",
		"PREVENCION DEL DELITO",
		"ALUMBRADO PUBLICO",
		"ALERTA VECINAL",
		"VIOLENCIA DE GENERO",
	},
}

// Regions lists the patrol regions in display order.
var Regions = []string{"REGION 1", "REGION 2", "REGION 3", "REGION 4"}

// RegionQuadrants maps each region to its quadrants.
var RegionQuadrants = map[string][]string{
	"REGION 1": {"C-01", "C-02", "C-03", "C-04"},
	"REGION 2": {"C-05", "C-06", "C-07", "C-08"},
	"REGION 3": {"C-09", "C-10", "C-11", "C-12"},
	"REGION 4": {"C-13", "C-14", "C-15", "C-16"},
}

// RegionInfo is a region together with its quadrants.
type RegionInfo struct {
	Name      string   `json:"name"`
	Quadrants []string `json:"quadrants"`
}

// ListRegions returns the region table in display order.
func ListRegions() []RegionInfo {
	out := make([]RegionInfo, 0, len(Regions))
	for _, r := range Regions {
		out = append(out, RegionInfo{Name: r, Quadrants: RegionQuadrants[r]})
	}
	return out
}

// IsRegion reports whether name is a known region.
func IsRegion(name string) bool {
	_, ok := RegionQuadrants[name]
	return ok
}

// DefaultColonies seed the colony catalog.
var DefaultColonies = []CatalogEntry{
	{Region: "REGION 1", Quadrant: "C-01", Colony: "CENTRO"},
	{Region: "REGION 1", Quadrant: "C-02", Colony: "SAN JUAN"},
	{Region: "REGION 2", Quadrant: "C-05", Colony: "LA MAGDALENA"},
	{Region: "REGION 3", Quadrant: "C-09", Colony: "EL CARMEN"},
	{Region: "REGION 4", Quadrant: "C-13", Colony: "SANTA CRUZ"},
}
