package anilist

// mediaFields 是主查询请求的字段集（覆盖 CatalogRecord 的全部字段，description 除外）。
const mediaFields = `
        id
        title {
          romaji
          english
          native
        }
        coverImage {
          extraLarge
          large
          medium
          color
        }
        bannerImage
        genres
        format
        season
        seasonYear
        episodes
        duration
        status
        averageScore
        popularity
        trailer {
          id
          site
          thumbnail
        }`

const pageHeader = `
  query ($page: Int, $perPage: Int, $sort: [MediaSort]) {
    Page(page: $page, perPage: $perPage) {
      pageInfo {
        total
        currentPage
        lastPage
        hasNextPage
      }
      media(type: ANIME, sort: $sort) {`

const pageFooter = `
      }
    }
  }
`

// MediaQuery 是分类主流程使用的查询。
const MediaQuery = pageHeader + mediaFields + pageFooter

// MediaQueryWithDescription 在 MediaQuery 的基础上额外请求 description（include_description=true 时使用）。
const MediaQueryWithDescription = pageHeader + mediaFields + `
        description` + pageFooter

// TrailerQuery 是预告片补充流程使用的查询：只取展示预告片需要的字段。
const TrailerQuery = pageHeader + `
        id
        title {
          romaji
          english
          native
        }
        coverImage {
          extraLarge
          large
          medium
          color
        }
        bannerImage
        trailer {
          id
          site
          thumbnail
        }` + pageFooter
