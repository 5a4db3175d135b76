package models

import "encoding/json"

// Student is a student record as served by the student API.
type Student struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Email        string  `json:"email,omitempty"`
	Phone        string  `json:"phone,omitempty"`
	AllocatedMan *string `json:"allocatedMan"`
}

// UnmarshalJSON accepts the identifier as either "id" or "_id".
func (s *Student) UnmarshalJSON(data []byte) error {
	type student Student
	aux := struct {
		*student
		MongoID string `json:"_id"`
	}{student: (*student)(s)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if s.ID == "" {
		s.ID = aux.MongoID
	}
	return nil
}

// Allocation returns the allocated staff name, or "" when unallocated.
func (s Student) Allocation() string {
	if s.AllocatedMan == nil {
		return ""
	}
	return *s.AllocatedMan
}

// NewStudent is the payload for registering a student.
type NewStudent struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"omitempty,email"`
	Phone string `json:"phone" validate:"omitempty,phone10"`
}

// StudentsResponse holds the full student collection.
type StudentsResponse struct {
	Students []Student `json:"students"`
}

// StudentResponse holds a single canonical student record.
type StudentResponse struct {
	Student Student `json:"student"`
}

// AllocationRequest is the body of an allocation PATCH.
type AllocationRequest struct {
	AllocatedMan string `json:"allocatedMan"`
}
