package config

// SceneConfig describes bodies, joints and models by name, for the CLI and the examples.
// Positions and axes are world space; a joint pivot frame is built from Pivot, Pin and Up.
type SceneConfig struct {
	Steps  int           `yaml:"steps"`
	Bodies []BodyConfig  `yaml:"bodies"`
	Joints []JointConfig `yaml:"joints"`
	Models []ModelConfig `yaml:"models"`
}

type BodyConfig struct {
	Name string `yaml:"name"`
	// Shape is one of "box", "sphere" or "plane"
	Shape       string     `yaml:"shape"`
	HalfExtents [3]float64 `yaml:"half_extents,omitempty"`
	Radius      float64    `yaml:"radius,omitempty"`
	Normal      [3]float64 `yaml:"normal,omitempty"`
	Density     float64    `yaml:"density"`
	Static      bool       `yaml:"static,omitempty"`
	Position    [3]float64 `yaml:"position"`
	Front       [3]float64 `yaml:"front,omitempty"`
	Up          [3]float64 `yaml:"up,omitempty"`
	Velocity    [3]float64 `yaml:"velocity,omitempty"`
	Omega       [3]float64 `yaml:"omega,omitempty"`
	Friction    float64    `yaml:"friction,omitempty"`
	Restitution float64    `yaml:"restitution,omitempty"`
}

// JointConfig is the union of every joint kind parameter; fields a kind does not use are ignored.
type JointConfig struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"`
	// Child is body0; an empty Parent or "world" attaches to the static world
	Child  string `yaml:"child"`
	Parent string `yaml:"parent,omitempty"`

	Pivot [3]float64 `yaml:"pivot"`
	Pin   [3]float64 `yaml:"pin"`
	Up    [3]float64 `yaml:"up,omitempty"`
	// Pin1 is the parent axis of a gear
	Pin1 [3]float64 `yaml:"pin1,omitempty"`

	// Limits bounds the main axis; Limits1 the second pin of a double hinge
	Limits      *LimitConfig `yaml:"limits,omitempty"`
	Limits1     *LimitConfig `yaml:"limits1,omitempty"`
	Twist       *LimitConfig `yaml:"twist,omitempty"`
	Position    *LimitConfig `yaml:"position,omitempty"`
	ConeAngle   float64      `yaml:"cone_angle,omitempty"`
	Spring      float64      `yaml:"spring,omitempty"`
	Damper      float64      `yaml:"damper,omitempty"`
	Regularizer float64      `yaml:"regularizer,omitempty"`
	Friction    float64      `yaml:"friction,omitempty"`

	Ratio     float64 `yaml:"ratio,omitempty"`
	MaxForce  float64 `yaml:"max_force,omitempty"`
	MaxTorque float64 `yaml:"max_torque,omitempty"`

	// Point is the world position of an effector on the child, Target its world goal
	Point  [3]float64 `yaml:"point,omitempty"`
	Target [3]float64 `yaml:"target,omitempty"`
	Swivel float64    `yaml:"swivel,omitempty"`
	IK     bool       `yaml:"ik,omitempty"`
}

type LimitConfig struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// ModelConfig groups joints into an articulation with a designated root body.
type ModelConfig struct {
	Name   string   `yaml:"name"`
	Root   string   `yaml:"root"`
	Joints []string `yaml:"joints"`
}
