package gateway

import (
	"fmt"

	"github.com/signalsfoundry/netstore/model"
	"google.golang.org/protobuf/types/known/structpb"
)

// Wire field names shared by requests and responses.
const (
	fieldNetworkID   = "networkId"
	fieldType        = "type"
	fieldID          = "id"
	fieldContainerID = "containerId"
	fieldName        = "name"
	fieldAttributes  = "attributes"
	fieldResources   = "resources"
	fieldResource    = "resource"
	fieldNetworks    = "networks"
	fieldFound       = "found"
)

// request is the decoded form of every store RPC payload.
type request struct {
	NetworkID   string
	Type        model.ResourceType
	ID          string
	ContainerID string
	Resources   []*model.Resource
}

func encodeRequest(req request) (*structpb.Struct, error) {
	m := map[string]any{}
	if req.NetworkID != "" {
		m[fieldNetworkID] = req.NetworkID
	}
	if req.Type != "" {
		m[fieldType] = string(req.Type)
	}
	if req.ID != "" {
		m[fieldID] = req.ID
	}
	if req.ContainerID != "" {
		m[fieldContainerID] = req.ContainerID
	}
	if req.Resources != nil {
		list, err := resourceList(req.Resources)
		if err != nil {
			return nil, err
		}
		m[fieldResources] = list
	}
	return structpb.NewStruct(m)
}

func decodeRequest(s *structpb.Struct) (request, error) {
	var req request
	if s == nil {
		return req, fmt.Errorf("%w: empty request", ErrInvalidRequest)
	}
	fields := s.GetFields()
	req.NetworkID = fields[fieldNetworkID].GetStringValue()
	req.ID = fields[fieldID].GetStringValue()
	req.ContainerID = fields[fieldContainerID].GetStringValue()
	if raw := fields[fieldType].GetStringValue(); raw != "" {
		t, err := model.ParseResourceType(raw)
		if err != nil {
			return req, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		req.Type = t
	}
	if list := fields[fieldResources].GetListValue(); list != nil {
		rs, err := resourcesFromList(list)
		if err != nil {
			return req, err
		}
		req.Resources = rs
	}
	return req, nil
}

func resourceMap(r *model.Resource) (map[string]any, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	attrs, err := model.EncodeAttributes(r.Attributes)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		fieldType:       string(r.Type),
		fieldID:         r.ID,
		fieldAttributes: attrs,
	}, nil
}

func resourceList(rs []*model.Resource) ([]any, error) {
	out := make([]any, 0, len(rs))
	for _, r := range rs {
		m, err := resourceMap(r)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func resourceFromStruct(s *structpb.Struct) (*model.Resource, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: empty resource", ErrInvalidRequest)
	}
	m := s.AsMap()
	rawType, _ := m[fieldType].(string)
	t, err := model.ParseResourceType(rawType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	id, _ := m[fieldID].(string)
	attrMap, _ := m[fieldAttributes].(map[string]any)
	attrs, err := model.DecodeAttributes(t, attrMap)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %q: %v", ErrInvalidRequest, t, id, err)
	}
	return &model.Resource{Type: t, ID: id, Attributes: attrs}, nil
}

func resourcesFromList(list *structpb.ListValue) ([]*model.Resource, error) {
	out := make([]*model.Resource, 0, len(list.GetValues()))
	for _, v := range list.GetValues() {
		r, err := resourceFromStruct(v.GetStructValue())
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func resourcesResponse(rs []*model.Resource) (*structpb.Struct, error) {
	list, err := resourceList(rs)
	if err != nil {
		return nil, err
	}
	return structpb.NewStruct(map[string]any{fieldResources: list})
}

func resourceResponse(r *model.Resource, found bool) (*structpb.Struct, error) {
	m := map[string]any{fieldFound: found}
	if found {
		rm, err := resourceMap(r)
		if err != nil {
			return nil, err
		}
		m[fieldResource] = rm
	}
	return structpb.NewStruct(m)
}

func networksResponse(infos []NetworkInfo) (*structpb.Struct, error) {
	list := make([]any, 0, len(infos))
	for _, info := range infos {
		list = append(list, map[string]any{fieldID: info.ID, fieldName: info.Name})
	}
	return structpb.NewStruct(map[string]any{fieldNetworks: list})
}

func networksFromResponse(s *structpb.Struct) []NetworkInfo {
	values := s.GetFields()[fieldNetworks].GetListValue().GetValues()
	out := make([]NetworkInfo, 0, len(values))
	for _, v := range values {
		f := v.GetStructValue().GetFields()
		out = append(out, NetworkInfo{
			ID:   f[fieldID].GetStringValue(),
			Name: f[fieldName].GetStringValue(),
		})
	}
	return out
}
