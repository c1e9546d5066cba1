package query

// ExtrasPrefix marks fields stored outside the core dataset schema.
const ExtrasPrefix = "extras_"

// DatasetCoreFields are the columns of the CKAN package table. They are
// indexed at the top level of the Solr document.
var DatasetCoreFields = []string{
	"id",
	"name",
	"title",
	"version",
	"url",
	"notes",
	"license_id",
	"author",
	"author_email",
	"maintainer",
	"maintainer_email",
	"state",
	"type",
	"owner_org",
	"private",
	"metadata_created",
	"metadata_modified",
	"creator_user_id",
	"plugin_data",
}

// SolrReservedFields are names the CKAN indexer reserves in the Solr schema.
var SolrReservedFields = []string{
	"q", "fl", "fq", "rows", "sort", "start", "wt", "qf", "bf", "boost",
	"facet", "facet.mincount", "facet.limit", "facet.field",
	"defType", "mm", "df", "tie", "pf", "ps", "q.alt",
	"extras", "tags", "tag", "groups", "organization", "license",
	"res_name", "res_description", "res_format", "res_url", "res_type", "res_extras",
	"text", "urls", "indexed_ts", "site_id", "index_id",
	"entity_type", "dataset_type", "capacity", "permission_labels",
	"data_dict", "validated_data_dict", "ckan_url", "download_url",
}

// FieldResolver maps logical field names onto backend field names.
type FieldResolver struct {
	prefix string
	core   map[string]struct{}
}

// NewFieldResolver builds a resolver whose core set is the union of fieldSets.
func NewFieldResolver(prefix string, fieldSets ...[]string) *FieldResolver {
	core := make(map[string]struct{})
	for _, set := range fieldSets {
		for _, field := range set {
			core[field] = struct{}{}
		}
	}
	return &FieldResolver{prefix: prefix, core: core}
}

// DatasetResolver resolves dataset fields: core package columns and reserved
// Solr fields stay as they are, everything else is an extra.
func DatasetResolver() *FieldResolver {
	return NewFieldResolver(ExtrasPrefix, DatasetCoreFields, SolrReservedFields)
}

// IsCore reports whether field is stored at the top level.
func (r *FieldResolver) IsCore(field string) bool {
	_, ok := r.core[field]
	return ok
}

// Resolve returns the backend name of field.
func (r *FieldResolver) Resolve(field string) string {
	if r.IsCore(field) {
		return field
	}
	return r.prefix + field
}
