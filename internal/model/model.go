package model

import (
	"database/sql"
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&LaunchSite{},
	&Flight{},
	&PartRecord{},
	&PartStateRecord{},
	&TelemetryRecord{},
	&FailureRecord{},
	&ExplosionRecord{},
	&AbortRecord{},
	&GeneralEvent{},
	&RecorderPerformance{},
}

var DatabaseModelsSQLite = []interface{}{
	&LaunchSite{},
	&Flight{},
	&PartRecord{},
	&PartStateRecord{},
	&TelemetryRecord{},
	&FailureRecord{},
	&ExplosionRecord{},
	&AbortRecord{},
	&GeneralEvent{},
	&RecorderPerformance{},
}

////////////////////////
// SYSTEM MODELS
////////////////////////

// RecorderPerformance is the model for recorder pipeline performance metrics
type RecorderPerformance struct {
	Time                time.Time         `json:"time" gorm:"type:timestamptz;index:idx_time"`
	FlightID            uint              `json:"flightId" gorm:"index:idx_recorderperformance_flight_id"`
	Flight              Flight            `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:FlightID;"`
	BufferLengths       BufferLengths     `json:"bufferLengths" gorm:"embedded;embeddedPrefix:buffer_"`
	WriteQueueLengths   WriteQueueLengths `json:"writeQueueLengths" gorm:"embedded;embeddedPrefix:writequeue_"`
	LastWriteDurationMs float32           `json:"lastWriteDurationMs"`
}

func (*RecorderPerformance) TableName() string {
	return "recorder_performances"
}

// BufferLengths is the model for the parse buffer lengths
type BufferLengths struct {
	Parts         uint16 `json:"parts"`
	PartStates    uint16 `json:"partStates"`
	Telemetry     uint16 `json:"telemetry"`
	FailureEvents uint16 `json:"failureEvents"`
	Explosions    uint16 `json:"explosions"`
	Aborts        uint16 `json:"aborts"`
	GeneralEvents uint16 `json:"generalEvents"`
}

// WriteQueueLengths is the model for the write queue lengths
type WriteQueueLengths struct {
	Parts         uint16 `json:"parts"`
	PartStates    uint16 `json:"partStates"`
	Telemetry     uint16 `json:"telemetry"`
	FailureEvents uint16 `json:"failureEvents"`
	Explosions    uint16 `json:"explosions"`
	Aborts        uint16 `json:"aborts"`
	GeneralEvents uint16 `json:"generalEvents"`
}

////////////////////////
// RECORDING MODELS
////////////////////////

// LaunchSite is the main model for a launch site
type LaunchSite struct {
	gorm.Model
	Name            string     `json:"name" gorm:"size:127"`
	Body            string     `json:"body" gorm:"size:64"`
	Latitude        float32    `json:"latitude" gorm:"-"`
	Longitude       float32    `json:"longitude" gorm:"-"`
	Elevation       float32    `json:"elevation"`
	AtmosphereDepth float64    `json:"atmosphereDepth"`
	Location        geom.Point `json:"location"`
	Flights         []Flight
}

func (*LaunchSite) TableName() string {
	return "launch_sites"
}

func (s *LaunchSite) GetOrInsert(db *gorm.DB) (
	created bool,
	err error,
) {
	var existingSite LaunchSite
	err = db.Where("name = ?", s.Name).First(&existingSite).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			// insert
			err = db.Create(s).Error
			return true, err
		}
		return false, err
	}
	// overwrite with db record if found
	*s = existingSite
	return false, nil
}

// Flight is the main model for one recorded ascent
//
// Sim command: :FLIGHT:NEW:
// Args: [craftName, siteName, tag, seed, captureDelay, engineVersion, configJSON, siteData]
type Flight struct {
	gorm.Model
	CraftName     string    `json:"craftName" gorm:"size:200"`
	Tag           string    `json:"tag" gorm:"size:127"`
	StartTime     time.Time `json:"startTime" gorm:"type:timestamptz;index:idx_flight_start"`
	LaunchSiteID  uint
	LaunchSite    LaunchSite     `gorm:"foreignkey:LaunchSiteID"`
	CaptureDelay  float32        `json:"-" gorm:"default:1.0"`
	Seed          int64          `json:"seed"`
	EngineVersion string         `json:"engineVersion" gorm:"size:64;default:1.0.0"`
	Config        datatypes.JSON `json:"config" gorm:"type:jsonb;default:'{}'"` // failure options in effect at launch

	Outcome     string          `json:"outcome" gorm:"size:16"` // nominal, failed, aborted
	DurationSec float64         `json:"durationSec"`
	EndFrame    uint            `json:"endFrame"`
	GroundTrack geom.LineString `json:"-"` // site-local positions, launch to end

	Parts         []PartRecord
	PartStates    []PartStateRecord
	Telemetry     []TelemetryRecord
	FailureEvents []FailureRecord
	Explosions    []ExplosionRecord
	Aborts        []AbortRecord
	GeneralEvents []GeneralEvent
}

func (*Flight) TableName() string {
	return "flights"
}

// PartRecord is a part of the craft as it joined the flight
// Uses composite primary key (FlightID, PartID) - PartID is stable within one flight
//
// Sim command: :PART:NEW:
// Args: [frameNo, partId, parentPartId, name, category, stage, maxTemp, maxThrust, breakingForce, explosiveFuel]
type PartRecord struct {
	FlightID      uint           `json:"flightId" gorm:"primaryKey;autoIncrement:false"`
	PartID        uint16         `json:"partId" gorm:"primaryKey;autoIncrement:false"` // part identifier within the craft
	Flight        Flight         `gorm:"foreignkey:FlightID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
	DeletedAt     gorm.DeletedAt `json:"deletedAt" gorm:"index"`
	JoinTime      time.Time      `json:"joinTime" gorm:"type:timestamptz;NOT NULL;index:idx_part_join_time"` // Server time when part was registered
	JoinFrame     uint           `json:"joinFrame"`                                                          // Frame number when part was first seen
	Name          string         `json:"name" gorm:"size:127"`                                               // Part display name (e.g., "LV-T45 Liquid Fuel Engine")
	Category      string         `json:"category" gorm:"size:32"`                                            // Part category: engine, fuelTank, radialDecoupler, controlSurface, strutOrFuelLine, ...
	Stage         int            `json:"stage"`                                                              // Stage the part belongs to
	ParentPartID  sql.NullInt32  `json:"parentPartId" gorm:"default:NULL"`                                   // PartID of the parent part (null for the root)
	MaxTemp       float64        `json:"maxTemp"`                                                            // Temperature at which the part is destroyed
	MaxThrust     float64        `json:"maxThrust"`                                                          // Rated thrust (engines only, 0 otherwise)
	BreakingForce float64        `json:"breakingForce"`                                                      // Joint strength used for structural failures
	ExplosiveFuel bool           `json:"explosiveFuel" gorm:"default:false"`                                 // Whether the part carries combustible fuel
}

func (*PartRecord) TableName() string {
	return "part_records"
}

func (p *PartRecord) Get(db *gorm.DB) (err error) {
	err = db.Where(&p).Order(
		"join_time DESC",
	).First(&p).Error
	return err
}

// PartStateRecord tracks part state at a point in time
// References PartRecord by (FlightID, PartID) composite FK
//
// Sim command: :PART:STATE:
// Args: [partId, frameNo, temperature, thrustPct, attached, doomed]
type PartStateRecord struct {
	ID           uint       `json:"id" gorm:"primarykey;autoIncrement;"`
	Time         time.Time  `json:"time" gorm:"type:timestamptz;"` // Server time when state was recorded
	FlightID     uint       `json:"flightId" gorm:"index:idx_partstate_flight_id"`
	Flight       Flight     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:FlightID;"`
	CaptureFrame uint       `json:"captureFrame" gorm:"index:idx_partstate_capture_frame"` // Frame number in recording timeline
	PartID       uint16     `json:"partId" gorm:"index:idx_partstate_part_id"`             // PartID of the part
	Part         PartRecord `gorm:"foreignkey:FlightID,PartID;references:FlightID,PartID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`

	Temperature float64 `json:"temperature"`                  // Current skin temperature
	ThrustPct   float64 `json:"thrustPct"`                    // Commanded thrust percentage (engines only)
	Attached    bool    `json:"attached" gorm:"default:true"` // Whether the part is still joined to the craft
	Doomed      bool    `json:"doomed" gorm:"default:false"`  // Whether the part is on the destruction schedule
}

func (*PartStateRecord) TableName() string {
	return "part_state_records"
}

// TelemetryRecord is one snapshot of the ascent state at a capture frame
//
// Sim command: :TELEMETRY:
// Args: [frameNo, met, altitude, velocity, throttle, mass, stage, position]
type TelemetryRecord struct {
	ID           uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time         time.Time `json:"time" gorm:"type:timestamptz;"` // Server time when snapshot was taken
	FlightID     uint      `json:"flightId" gorm:"index:idx_telemetry_flight_id"`
	Flight       Flight    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:FlightID;"`
	CaptureFrame uint      `json:"captureFrame" gorm:"index:idx_telemetry_capture_frame;"` // Frame number in recording timeline

	MET          float64    `json:"met"`          // Mission elapsed time in seconds
	Altitude     float64    `json:"altitude"`     // Altitude above sea level in meters
	Velocity     float64    `json:"velocity"`     // Vertical velocity in m/s
	Throttle     float64    `json:"throttle"`     // Commanded throttle (0.0-1.0)
	Mass         float64    `json:"mass"`         // Total craft mass in tons
	Stage        int        `json:"stage"`        // Current stage number
	Position     geom.Point `json:"position"`     // Site-local position as 2D point
	ElevationASL float32    `json:"elevationASL"` // Z coordinate / altitude ASL
}

func (*TelemetryRecord) TableName() string {
	return "telemetry_records"
}

// FailureRecord marks a lifecycle event of an equipment failure:
// warning issued, degradation started, part destroyed
// References PartRecord by (FlightID, PartID) composite FK
//
// Sim commands: :FAILURE:WARNING: and :FAILURE:DESTROYED:
// Args: [frameNo, partId, partName, failureType, phase, message]
type FailureRecord struct {
	ID           uint       `json:"id" gorm:"primarykey;autoIncrement;"`
	Time         time.Time  `json:"time" gorm:"type:timestamptz;"` // Server time when event occurred
	FlightID     uint       `json:"flightId" gorm:"index:idx_failure_flight_id"`
	Flight       Flight     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:FlightID;"`
	CaptureFrame uint       `json:"captureFrame" gorm:"index:idx_failure_capture_frame;"` // Frame number when event occurred
	PartID       uint16     `json:"partId" gorm:"index:idx_failure_part_id"`              // PartID of the failing part
	Part         PartRecord `gorm:"foreignkey:FlightID,PartID;references:FlightID,PartID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`

	FailureType string `json:"failureType" gorm:"size:32"` // engine, radialDecoupler, controlSurface, strutOrFuelLine
	Phase       string `json:"phase" gorm:"size:32"`       // Warning, Degrading, DestructionPending
	PartName    string `json:"partName" gorm:"size:127"`   // Display name of the failing part
	Message     string `json:"message"`                    // Operator-facing description
}

func (*FailureRecord) TableName() string {
	return "failure_records"
}

// ExplosionRecord records the destruction of a part
// References PartRecord by (FlightID, PartID) composite FK
//
// Sim command: :PART:EXPLODED:
// Args: [frameNo, partId, partName, cause, altitude]
type ExplosionRecord struct {
	ID           uint       `json:"id" gorm:"primarykey;autoIncrement;"`
	Time         time.Time  `json:"time" gorm:"type:timestamptz;"` // Server time when part was destroyed
	FlightID     uint       `json:"flightId" gorm:"index:idx_explosion_flight_id"`
	Flight       Flight     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:FlightID;"`
	CaptureFrame uint       `json:"captureFrame" gorm:"index:idx_explosion_capture_frame;"` // Frame number when part was destroyed
	PartID       uint16     `json:"partId" gorm:"index:idx_explosion_part_id"`              // PartID of the destroyed part
	Part         PartRecord `gorm:"foreignkey:FlightID,PartID;references:FlightID,PartID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`

	PartName  string         `json:"partName" gorm:"size:127"`                    // Display name of the destroyed part
	Cause     string         `json:"cause" gorm:"size:32"`                        // overheat, structural, cascade
	Altitude  float64        `json:"altitude"`                                    // Craft altitude at destruction
	LastState datatypes.JSON `json:"lastState" gorm:"type:jsonb;default:'null'"` // Last recorded state row for the part, if any
}

func (*ExplosionRecord) TableName() string {
	return "explosion_records"
}

// AbortRecord records an abort action, manual or automatic
//
// Sim command: :ABORT:
// Args: [frameNo, automatic, reason]
type AbortRecord struct {
	ID           uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time         time.Time `json:"time" gorm:"type:timestamptz;"` // Server time when abort was commanded
	FlightID     uint      `json:"flightId" gorm:"index:idx_abort_flight_id"`
	Flight       Flight    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:FlightID;"`
	CaptureFrame uint      `json:"captureFrame" gorm:"index:idx_abort_capture_frame;"` // Frame number when abort was commanded

	Automatic bool   `json:"automatic" gorm:"default:false"` // true when triggered by the auto-abort hold
	Reason    string `json:"reason" gorm:"size:127"`         // What prompted the abort
}

func (*AbortRecord) TableName() string {
	return "abort_records"
}

// GeneralEvent is a generic event for staging, gate passage, session end, custom events
//
// Sim command: :EVENT:
// Args: [frameNo, eventType, message, extraDataJSON]
// Common eventTypes: "launch", "staging", "endFlight"
type GeneralEvent struct {
	ID           uint           `json:"id" gorm:"primarykey;autoIncrement;"`
	Time         time.Time      `json:"time" gorm:"type:timestamptz;"` // Server time when event occurred
	FlightID     uint           `json:"flightId" gorm:"index:idx_generalevent_flight_id"`
	Flight       Flight         `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:FlightID;"`
	CaptureFrame uint           `json:"captureFrame" gorm:"index:idx_generalevent_capture_frame;"` // Frame number when event occurred
	Name         string         `json:"name" gorm:"size:64"`                                       // Event type: launch, staging, endFlight, custom
	Message      string         `json:"message"`                                                   // Event message
	ExtraData    datatypes.JSON `json:"extraData" gorm:"type:jsonb;default:'{}'"`                  // Additional JSON data
}

func (g *GeneralEvent) TableName() string {
	return "general_events"
}
