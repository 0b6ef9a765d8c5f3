package entity

// Vertex is a pixel coordinate. The detection provider omits zero-valued
// coordinates on the wire, so a missing x or y decodes as 0.
type Vertex struct {
	X int64 `json:"x"`
	Y int64 `json:"y"`
}

// BoundingPoly vertices follow the provider's ordering: 0 top-left,
// 1 top-right, 2 bottom-right, 3 bottom-left. Nothing validates this.
type BoundingPoly struct {
	Vertices []Vertex `json:"vertices"`
}

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

type Landmark struct {
	Type     string    `json:"type"`
	Position *Position `json:"position,omitempty"`
}

// FaceAnnotation is one face as reported by the detection provider.
type FaceAnnotation struct {
	BoundingPoly           *BoundingPoly `json:"boundingPoly,omitempty"`
	FdBoundingPoly         *BoundingPoly `json:"fdBoundingPoly,omitempty"`
	Landmarks              []Landmark    `json:"landmarks,omitempty"`
	JoyLikelihood          string        `json:"joyLikelihood,omitempty"`
	AngerLikelihood        string        `json:"angerLikelihood,omitempty"`
	SorrowLikelihood       string        `json:"sorrowLikelihood,omitempty"`
	SurpriseLikelihood     string        `json:"surpriseLikelihood,omitempty"`
	DetectionConfidence    float64       `json:"detectionConfidence"`
	LandmarkingConfidence  float64       `json:"landmarkingConfidence,omitempty"`
	UnderExposedLikelihood string        `json:"underExposedLikelihood,omitempty"`
	BlurredLikelihood      string        `json:"blurredLikelihood,omitempty"`
	HeadwearLikelihood     string        `json:"headwearLikelihood,omitempty"`
}

type Gender string

const (
	GenderMale    Gender = "Male (estimated)"
	GenderFemale  Gender = "Female (estimated)"
	GenderUnknown Gender = "Unknown"
)

type Emotions struct {
	Joy      float64 `json:"joy"`
	Anger    float64 `json:"anger"`
	Sorrow   float64 `json:"sorrow"`
	Surprise float64 `json:"surprise"`
}

type NormalizedFace struct {
	FaceID      int           `json:"faceId"`
	Gender      Gender        `json:"gender"`
	BoundingBox *BoundingPoly `json:"boundingBox"`
	Landmarks   []Landmark    `json:"landmarks"`
	Emotions    Emotions      `json:"emotions"`
	Confidence  float64       `json:"confidence"`
}

type AnalysisResult struct {
	TotalFaces     int              `json:"totalFaces"`
	Faces          []NormalizedFace `json:"faces"`
	AnnotatedImage *string          `json:"annotatedImage"`
}
