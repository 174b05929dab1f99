package game

import (
	"io/ioutil"
	"path/filepath"

	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"
)

// OrderKind classifies planning orders for resolution ordering and wildcard
// restrictions.
type OrderKind int

const (
	OrderRaid OrderKind = iota
	OrderMarch
	OrderSupport
	OrderConsolidatePower
	OrderDefense
)

// OrderType is static content describing one planning order token.
type OrderType struct {
	ID       string    `yaml:"id"`
	Name     string    `yaml:"name"`
	Kind     OrderKind `yaml:"kind"`
	Starred  bool      `yaml:"starred"`
	Strength int       `yaml:"strength"`
}

// WesterosCardType describes one westeros card's effect hook.
type WesterosCardType struct {
	ID               string `yaml:"id"`
	Name             string `yaml:"name"`
	Deck             int    `yaml:"deck"`
	Quantity         int    `yaml:"quantity"`
	WildlingStrength int    `yaml:"wildlingStrength"`
}

// WildlingCardType describes one wildling card. Effects are dispatched by id
// during a wildling attack.
type WildlingCardType struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

type RegionDef struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Sea         bool     `yaml:"sea"`
	CastleLevel int      `yaml:"castleLevel"`
	SupplyIcons int      `yaml:"supplyIcons"`
	CrownIcons  int      `yaml:"crownIcons"`
	Garrison    int      `yaml:"garrison"`
	HomeOf      string   `yaml:"homeOf"`
	Adjacent    []string `yaml:"adjacent"`
}

type HouseDef struct {
	ID         string      `yaml:"id"`
	Name       string      `yaml:"name"`
	Color      string      `yaml:"color"`
	HouseCards []HouseCard `yaml:"houseCards"`
}

type SetupUnit struct {
	RegionID string `yaml:"region"`
	TypeID   string `yaml:"type"`
}

// Content is the immutable rules content a board is built from. It is loaded
// once at startup and shared by every game.
type Content struct {
	UnitTypes          map[string]*UnitType
	OrderTypes         map[string]*OrderType
	WesterosCardTypes  map[string]*WesterosCardType
	WildlingCardTypes  map[string]*WildlingCardType
	Houses             []HouseDef
	Regions            []RegionDef
	SetupUnits         map[string][]SetupUnit
	SupplyRestrictions [][]int
	MaxTurns           int
	MaxPowerTokens     int
	// LoanCardCount > 0 enables the iron bank.
	LoanCardCount int
}

type contentFile struct {
	UnitTypes          []UnitType             `yaml:"unitTypes"`
	OrderTypes         []OrderType            `yaml:"orderTypes"`
	WesterosCardTypes  []WesterosCardType     `yaml:"westerosCardTypes"`
	WildlingCardTypes  []WildlingCardType     `yaml:"wildlingCardTypes"`
	Houses             []HouseDef             `yaml:"houses"`
	Regions            []RegionDef            `yaml:"regions"`
	SetupUnits         map[string][]SetupUnit `yaml:"setupUnits"`
	SupplyRestrictions [][]int                `yaml:"supplyRestrictions"`
	MaxTurns           int                    `yaml:"maxTurns"`
	MaxPowerTokens     int                    `yaml:"maxPowerTokens"`
	LoanCardCount      int                    `yaml:"loanCardCount"`
}

// LoadContent reads the rules content from dir/content.yaml.
func LoadContent(dir string) (*Content, error) {
	filename := filepath.Join(dir, "content.yaml")
	data, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to read content file [%s]", filename)
	}
	var cf contentFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, errors.Wrapf(err, "Failed to parse content file [%s]", filename)
	}
	return buildContent(&cf)
}

func buildContent(cf *contentFile) (*Content, error) {
	c := &Content{
		UnitTypes:          make(map[string]*UnitType),
		OrderTypes:         make(map[string]*OrderType),
		WesterosCardTypes:  make(map[string]*WesterosCardType),
		WildlingCardTypes:  make(map[string]*WildlingCardType),
		Houses:             cf.Houses,
		Regions:            cf.Regions,
		SetupUnits:         cf.SetupUnits,
		SupplyRestrictions: cf.SupplyRestrictions,
		MaxTurns:           cf.MaxTurns,
		MaxPowerTokens:     cf.MaxPowerTokens,
		LoanCardCount:      cf.LoanCardCount,
	}
	if c.MaxTurns == 0 {
		c.MaxTurns = 10
	}
	if c.MaxPowerTokens == 0 {
		c.MaxPowerTokens = 20
	}
	for i := range cf.UnitTypes {
		ut := cf.UnitTypes[i]
		c.UnitTypes[ut.ID] = &ut
	}
	for i := range cf.OrderTypes {
		ot := cf.OrderTypes[i]
		c.OrderTypes[ot.ID] = &ot
	}
	for i := range cf.WesterosCardTypes {
		wt := cf.WesterosCardTypes[i]
		c.WesterosCardTypes[wt.ID] = &wt
	}
	for i := range cf.WildlingCardTypes {
		wt := cf.WildlingCardTypes[i]
		c.WildlingCardTypes[wt.ID] = &wt
	}
	if len(c.SupplyRestrictions) == 0 {
		return nil, errors.New("Content has no supply restrictions table")
	}
	if len(c.Houses) == 0 {
		return nil, errors.New("Content has no houses")
	}
	if len(c.Regions) == 0 {
		return nil, errors.New("Content has no regions")
	}
	return c, nil
}

// DefaultContent builds a compact rules content usable without a content
// file. Tests and the in-memory persist mode run on it.
func DefaultContent() *Content {
	cf := &contentFile{
		UnitTypes: []UnitType{
			{ID: "footman", Name: "Footman", CombatStrength: 1},
			{ID: "knight", Name: "Knight", CombatStrength: 2},
			{ID: "siege-engine", Name: "Siege Engine", CombatStrength: 4},
			{ID: "ship", Name: "Ship", CombatStrength: 1, Naval: true},
		},
		OrderTypes: []OrderType{
			{ID: "march-minus-one", Name: "March -1", Kind: OrderMarch, Strength: -1},
			{ID: "march", Name: "March", Kind: OrderMarch, Strength: 0},
			{ID: "march-plus-one", Name: "March +1", Kind: OrderMarch, Starred: true, Strength: 1},
			{ID: "raid", Name: "Raid", Kind: OrderRaid},
			{ID: "raid-special", Name: "Raid", Kind: OrderRaid, Starred: true},
			{ID: "support", Name: "Support", Kind: OrderSupport},
			{ID: "support-plus-one", Name: "Support +1", Kind: OrderSupport, Starred: true, Strength: 1},
			{ID: "consolidate-power", Name: "Consolidate Power", Kind: OrderConsolidatePower},
			{ID: "muster", Name: "Consolidate Power", Kind: OrderConsolidatePower, Starred: true},
			{ID: "defense-plus-one", Name: "Defense +1", Kind: OrderDefense, Strength: 1},
			{ID: "defense-plus-two", Name: "Defense +2", Kind: OrderDefense, Starred: true, Strength: 2},
		},
		WesterosCardTypes: []WesterosCardType{
			{ID: "supply", Name: "Supply", Deck: 0, Quantity: 3},
			{ID: "mustering", Name: "Mustering", Deck: 0, Quantity: 3},
			{ID: "throne-of-blades", Name: "A Throne of Blades", Deck: 0, Quantity: 2},
			{ID: "last-days-of-summer-0", Name: "Last Days of Summer", Deck: 0, Quantity: 1, WildlingStrength: 1},
			{ID: "winter-is-coming-0", Name: "Winter is Coming", Deck: 0, Quantity: 1},
			{ID: "clash-of-kings", Name: "Clash of Kings", Deck: 1, Quantity: 3},
			{ID: "game-of-thrones", Name: "Game of Thrones", Deck: 1, Quantity: 3},
			{ID: "dark-wings-dark-words", Name: "Dark Wings, Dark Words", Deck: 1, Quantity: 2},
			{ID: "last-days-of-summer-1", Name: "Last Days of Summer", Deck: 1, Quantity: 1, WildlingStrength: 1},
			{ID: "winter-is-coming-1", Name: "Winter is Coming", Deck: 1, Quantity: 1},
			{ID: "wildling-attack", Name: "Wildlings Attack", Deck: 2, Quantity: 3},
			{ID: "sea-of-storms", Name: "Sea of Storms", Deck: 2, Quantity: 2},
			{ID: "rains-of-autumn", Name: "Rains of Autumn", Deck: 2, Quantity: 2},
			{ID: "feast-for-crows", Name: "Feast for Crows", Deck: 2, Quantity: 2},
			{ID: "put-to-the-sword", Name: "Put to the Sword", Deck: 2, Quantity: 1, WildlingStrength: 1},
		},
		WildlingCardTypes: []WildlingCardType{
			{ID: "silence-at-the-wall", Name: "Silence at the Wall"},
			{ID: "preemptive-raid", Name: "Preemptive Raid"},
			{ID: "crow-killers", Name: "Crow Killers"},
			{ID: "rattleshirts-raiders", Name: "Rattleshirt's Raiders"},
			{ID: "massing-on-the-milkwater", Name: "Massing on the Milkwater"},
			{ID: "a-king-beyond-the-wall", Name: "A King Beyond the Wall"},
			{ID: "mammoth-riders", Name: "Mammoth Riders"},
			{ID: "the-horde-descends", Name: "The Horde Descends"},
			{ID: "skinchanger-scout", Name: "Skinchanger Scout"},
		},
		Houses: []HouseDef{
			{ID: "stark", Name: "Stark", Color: "#fff", HouseCards: defaultHand("stark")},
			{ID: "lannister", Name: "Lannister", Color: "#c00", HouseCards: defaultHand("lannister")},
			{ID: "baratheon", Name: "Baratheon", Color: "#ff0", HouseCards: defaultHand("baratheon")},
			{ID: "greyjoy", Name: "Greyjoy", Color: "#000", HouseCards: defaultHand("greyjoy")},
			{ID: "tyrell", Name: "Tyrell", Color: "#0a0", HouseCards: defaultHand("tyrell")},
			{ID: "martell", Name: "Martell", Color: "#f80", HouseCards: defaultHand("martell")},
		},
		Regions: []RegionDef{
			{ID: "winterfell", Name: "Winterfell", CastleLevel: 2, SupplyIcons: 1, CrownIcons: 1, HomeOf: "stark", Adjacent: []string{"white-harbor", "the-shivering-sea", "moat-cailin"}},
			{ID: "white-harbor", Name: "White Harbor", CastleLevel: 1, Adjacent: []string{"winterfell", "the-shivering-sea", "moat-cailin"}},
			{ID: "moat-cailin", Name: "Moat Cailin", CastleLevel: 1, Adjacent: []string{"winterfell", "white-harbor", "the-twins"}},
			{ID: "the-twins", Name: "The Twins", SupplyIcons: 1, Adjacent: []string{"moat-cailin", "riverrun", "the-shivering-sea"}},
			{ID: "riverrun", Name: "Riverrun", CastleLevel: 2, SupplyIcons: 1, CrownIcons: 1, Adjacent: []string{"the-twins", "lannisport", "harrenhal"}},
			{ID: "lannisport", Name: "Lannisport", CastleLevel: 2, SupplyIcons: 2, HomeOf: "lannister", Adjacent: []string{"riverrun", "harrenhal", "the-golden-sound", "stoney-sept"}},
			{ID: "harrenhal", Name: "Harrenhal", CastleLevel: 1, CrownIcons: 1, Adjacent: []string{"riverrun", "lannisport", "kings-landing", "stoney-sept"}},
			{ID: "stoney-sept", Name: "Stoney Sept", CrownIcons: 1, Adjacent: []string{"lannisport", "harrenhal", "blackwater-bay"}},
			{ID: "kings-landing", Name: "King's Landing", CastleLevel: 2, CrownIcons: 2, Adjacent: []string{"harrenhal", "blackwater-bay", "dragonstone-coast", "highgarden"}},
			{ID: "dragonstone-coast", Name: "Dragonstone", CastleLevel: 2, SupplyIcons: 1, CrownIcons: 1, HomeOf: "baratheon", Adjacent: []string{"kings-landing", "blackwater-bay", "the-shivering-sea"}},
			{ID: "pyke", Name: "Pyke", CastleLevel: 2, SupplyIcons: 1, CrownIcons: 1, HomeOf: "greyjoy", Adjacent: []string{"the-golden-sound"}},
			{ID: "highgarden", Name: "Highgarden", CastleLevel: 2, SupplyIcons: 2, HomeOf: "tyrell", Adjacent: []string{"kings-landing", "oldtown", "the-golden-sound"}},
			{ID: "oldtown", Name: "Oldtown", CastleLevel: 1, CrownIcons: 1, Adjacent: []string{"highgarden", "sunspear"}},
			{ID: "sunspear", Name: "Sunspear", CastleLevel: 2, SupplyIcons: 1, CrownIcons: 1, HomeOf: "martell", Adjacent: []string{"oldtown", "blackwater-bay"}},
			{ID: "the-shivering-sea", Name: "The Shivering Sea", Sea: true, Adjacent: []string{"winterfell", "white-harbor", "the-twins", "dragonstone-coast"}},
			{ID: "blackwater-bay", Name: "Blackwater Bay", Sea: true, Adjacent: []string{"stoney-sept", "kings-landing", "dragonstone-coast", "sunspear"}},
			{ID: "the-golden-sound", Name: "The Golden Sound", Sea: true, Adjacent: []string{"lannisport", "pyke", "highgarden"}},
		},
		SetupUnits: map[string][]SetupUnit{
			"stark":     {{RegionID: "winterfell", TypeID: "knight"}, {RegionID: "winterfell", TypeID: "footman"}, {RegionID: "white-harbor", TypeID: "footman"}, {RegionID: "the-shivering-sea", TypeID: "ship"}},
			"lannister": {{RegionID: "lannisport", TypeID: "knight"}, {RegionID: "lannisport", TypeID: "footman"}, {RegionID: "stoney-sept", TypeID: "footman"}, {RegionID: "the-golden-sound", TypeID: "ship"}},
			"baratheon": {{RegionID: "dragonstone-coast", TypeID: "knight"}, {RegionID: "dragonstone-coast", TypeID: "footman"}, {RegionID: "kings-landing", TypeID: "footman"}, {RegionID: "blackwater-bay", TypeID: "ship"}},
			"greyjoy":   {{RegionID: "pyke", TypeID: "knight"}, {RegionID: "pyke", TypeID: "footman"}},
			"tyrell":    {{RegionID: "highgarden", TypeID: "knight"}, {RegionID: "highgarden", TypeID: "footman"}, {RegionID: "oldtown", TypeID: "footman"}},
			"martell":   {{RegionID: "sunspear", TypeID: "knight"}, {RegionID: "sunspear", TypeID: "footman"}},
		},
		SupplyRestrictions: [][]int{
			{2, 2},
			{3, 2},
			{3, 2, 2},
			{3, 2, 2, 2},
			{3, 3, 2, 2},
			{4, 3, 2, 2},
			{4, 3, 2, 2, 2},
		},
		MaxTurns:       10,
		MaxPowerTokens: 20,
		LoanCardCount:  12,
	}
	c, err := buildContent(cf)
	if err != nil {
		panic(err)
	}
	return c
}

func defaultHand(houseID string) []HouseCard {
	strengths := []int{0, 1, 2, 2, 3, 3, 4}
	cards := make([]HouseCard, len(strengths))
	for i, s := range strengths {
		cards[i] = HouseCard{
			ID:             houseID + "-" + string(rune('a'+i)),
			Name:           houseID + " card " + string(rune('a'+i)),
			CombatStrength: s,
			Swords:         i % 2,
			Towers:         (i + 1) % 2,
		}
	}
	return cards
}
