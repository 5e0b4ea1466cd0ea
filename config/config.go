package config

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultFixedStep          = 1.0 / 60.0
	DefaultMaxSteps           = 4
	DefaultMaxIterations      = 16
	DefaultIkIterations       = 4
	DefaultTolerance          = 1e-6
	DefaultDirectMaxRows      = 64
	DefaultWorkers            = 1
	DefaultErrorReduction     = 0.2
	DefaultRegularizer        = 0.1
	DefaultMinRegularizer     = 0.01
	DefaultMaxRegularizer     = 0.99
	DefaultMaxStopAccel       = 1000.0
	DefaultGearRatioThreshold = 0.05
	DefaultSleepSteps         = 30
	DefaultSleepEnergy        = 1e-3
	DefaultSleepResidual      = 1e-3
	DefaultContactSlop        = 0.005
	DefaultContactRecovery    = 1.0
	DefaultRestitutionSpeed   = 1.0

	degree = math.Pi / 180

	// MaxConeAngle is the widest cone limit a joint accepts
	MaxConeAngle = 120 * degree * 0.999
)

// Config is the top level file layout: solver tuning, timing, sleep thresholds and an optional scene.
type Config struct {
	Solver Tuning       `yaml:"solver"`
	Timing TimingConfig `yaml:"timing"`
	Sleep  SleepConfig  `yaml:"sleep"`
	Scene  SceneConfig  `yaml:"scene"`
}

// Recovery bounds the bias velocity used to push a violated limit back into range.
type Recovery struct {
	MaxSpeed       float64 `yaml:"max_speed"`
	MaxPenetration float64 `yaml:"max_penetration"`
}

// Speed returns MaxSpeed scaled by the penetration, saturating at MaxPenetration.
func (r Recovery) Speed(penetration float64) float64 {
	if r.MaxPenetration <= 0 {
		return 0
	}
	param := math.Max(0, math.Min(penetration, r.MaxPenetration)) / r.MaxPenetration
	return r.MaxSpeed * param
}

// Tuning holds the empirical constants of the joint rows and the row solver.
type Tuning struct {
	Gravity       [3]float64 `yaml:"gravity"`
	Workers       int        `yaml:"workers"`
	MaxIterations int        `yaml:"max_iterations"`
	IkIterations  int        `yaml:"ik_iterations"`
	Tolerance     float64    `yaml:"tolerance"`
	DirectMaxRows int        `yaml:"direct_max_rows"`

	ErrorReduction     float64 `yaml:"error_reduction"`
	Regularizer        float64 `yaml:"regularizer"`
	MinRegularizer     float64 `yaml:"min_regularizer"`
	MaxRegularizer     float64 `yaml:"max_regularizer"`
	MaxStopAccel       float64 `yaml:"max_stop_accel"`
	GearRatioThreshold float64 `yaml:"gear_ratio_threshold"`

	AngleRecovery    Recovery `yaml:"angle_recovery"`
	PositionRecovery Recovery `yaml:"position_recovery"`
	TwistRecovery    Recovery `yaml:"twist_recovery"`
	LockAngle        float64  `yaml:"lock_angle"`
	LockDistance     float64  `yaml:"lock_distance"`
	MaxConeAngle     float64  `yaml:"max_cone_angle"`
	CartesianCosine  float64  `yaml:"cartesian_cosine"`
	SmallDistance    float64  `yaml:"small_distance"`

	ContactSlop      float64 `yaml:"contact_slop"`
	ContactRecovery  float64 `yaml:"contact_recovery"`
	RestitutionSpeed float64 `yaml:"restitution_speed"`
}

type TimingConfig struct {
	FixedStep float64 `yaml:"fixed_step"`
	MaxSteps  int     `yaml:"max_steps"`
}

type SleepConfig struct {
	Steps int `yaml:"steps"`
	// Energy is the kinetic energy per unit mass under which an island may rest
	Energy   float64 `yaml:"energy"`
	Residual float64 `yaml:"residual"`
}

func DefaultTuning() Tuning {
	return Tuning{
		Gravity:            [3]float64{0, -9.81, 0},
		Workers:            DefaultWorkers,
		MaxIterations:      DefaultMaxIterations,
		IkIterations:       DefaultIkIterations,
		Tolerance:          DefaultTolerance,
		DirectMaxRows:      DefaultDirectMaxRows,
		ErrorReduction:     DefaultErrorReduction,
		Regularizer:        DefaultRegularizer,
		MinRegularizer:     DefaultMinRegularizer,
		MaxRegularizer:     DefaultMaxRegularizer,
		MaxStopAccel:       DefaultMaxStopAccel,
		GearRatioThreshold: DefaultGearRatioThreshold,
		AngleRecovery:      Recovery{MaxSpeed: 0.25, MaxPenetration: 4 * degree},
		PositionRecovery:   Recovery{MaxSpeed: 0.5, MaxPenetration: 0.05},
		TwistRecovery:      Recovery{MaxSpeed: 0.1, MaxPenetration: 10 * degree},
		LockAngle:          1 * degree,
		LockDistance:       1e-3,
		MaxConeAngle:       MaxConeAngle,
		CartesianCosine:    0.998,
		SmallDistance:      1e-3,
		ContactSlop:        DefaultContactSlop,
		ContactRecovery:    DefaultContactRecovery,
		RestitutionSpeed:   DefaultRestitutionSpeed,
	}
}

func DefaultConfig() *Config {
	return &Config{
		Solver: DefaultTuning(),
		Timing: TimingConfig{
			FixedStep: DefaultFixedStep,
			MaxSteps:  DefaultMaxSteps,
		},
		Sleep: SleepConfig{
			Steps:    DefaultSleepSteps,
			Energy:   DefaultSleepEnergy,
			Residual: DefaultSleepResidual,
		},
	}
}

// Load reads a YAML file over the defaults, then validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.Validate()
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate clamps every value into its usable range and returns the names of the fields it changed.
func (c *Config) Validate() []string {
	var clamped []string
	clamped = append(clamped, c.Solver.Validate()...)

	if c.Timing.FixedStep <= 0 {
		c.Timing.FixedStep = DefaultFixedStep
		clamped = append(clamped, "timing.fixed_step")
	}
	if c.Timing.MaxSteps < 1 {
		c.Timing.MaxSteps = 1
		clamped = append(clamped, "timing.max_steps")
	}
	if c.Sleep.Steps < 1 {
		c.Sleep.Steps = 1
		clamped = append(clamped, "sleep.steps")
	}
	if c.Sleep.Energy < 0 {
		c.Sleep.Energy = 0
		clamped = append(clamped, "sleep.energy")
	}
	if c.Sleep.Residual < 0 {
		c.Sleep.Residual = 0
		clamped = append(clamped, "sleep.residual")
	}
	return clamped
}

func (t *Tuning) Validate() []string {
	var clamped []string
	atLeast := func(name string, v *int, min int) {
		if *v < min {
			*v = min
			clamped = append(clamped, name)
		}
	}
	nonNegative := func(name string, v *float64) {
		if *v < 0 || math.IsNaN(*v) {
			*v = 0
			clamped = append(clamped, name)
		}
	}

	atLeast("solver.workers", &t.Workers, 1)
	atLeast("solver.max_iterations", &t.MaxIterations, 1)
	atLeast("solver.ik_iterations", &t.IkIterations, 1)
	atLeast("solver.direct_max_rows", &t.DirectMaxRows, 0)
	nonNegative("solver.tolerance", &t.Tolerance)
	nonNegative("solver.max_stop_accel", &t.MaxStopAccel)
	nonNegative("solver.gear_ratio_threshold", &t.GearRatioThreshold)
	nonNegative("solver.lock_angle", &t.LockAngle)
	nonNegative("solver.lock_distance", &t.LockDistance)
	nonNegative("solver.contact_slop", &t.ContactSlop)
	nonNegative("solver.contact_recovery", &t.ContactRecovery)

	if t.ErrorReduction < 0 || t.ErrorReduction > 1 {
		t.ErrorReduction = math.Max(0, math.Min(t.ErrorReduction, 1))
		clamped = append(clamped, "solver.error_reduction")
	}
	if t.MinRegularizer <= 0 || t.MinRegularizer > t.MaxRegularizer || t.MaxRegularizer >= 1 {
		t.MinRegularizer = DefaultMinRegularizer
		t.MaxRegularizer = DefaultMaxRegularizer
		clamped = append(clamped, "solver.min_regularizer", "solver.max_regularizer")
	}
	if r := t.ClampRegularizer(t.Regularizer); r != t.Regularizer {
		t.Regularizer = r
		clamped = append(clamped, "solver.regularizer")
	}
	if t.MaxConeAngle <= 0 || t.MaxConeAngle > MaxConeAngle {
		t.MaxConeAngle = MaxConeAngle
		clamped = append(clamped, "solver.max_cone_angle")
	}
	if t.CartesianCosine <= 0 || t.CartesianCosine >= 1 {
		t.CartesianCosine = 0.998
		clamped = append(clamped, "solver.cartesian_cosine")
	}
	return clamped
}

// ClampRegularizer bounds a row regularizer to [MinRegularizer, MaxRegularizer].
func (t Tuning) ClampRegularizer(r float64) float64 {
	return math.Max(t.MinRegularizer, math.Min(math.Abs(r), t.MaxRegularizer))
}
